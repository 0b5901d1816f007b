package buildsys

import (
	"encoding/gob"
	"os"

	"github.com/rotisserie/eris"
)

func init() {
	gob.Register(TaskList{})
	gob.Register(Task{})
	gob.Register(ShellCmd{})
	gob.Register(TaskRef{})
	// FuncCmd is deliberately not registered; tasks holding Go functions
	// can't be cached and are rebuilt on every invocation.
}

// WriteCache stores the parsed task list and the option values it was
// parsed with so later invocations can skip the script evaluation.
func WriteCache(file string, options map[string]string, list TaskList) error {
	if options == nil {
		options = map[string]string{}
	}

	handle, err := os.Create(file)
	if err != nil {
		return eris.Wrapf(err, "failed to create cache file %s", file)
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(options)
	if err != nil {
		return eris.Wrap(err, "failed to encode options")
	}

	return encoder.Encode(list)
}

// ReadCache loads a task list written by WriteCache.
func ReadCache(file string) (map[string]string, TaskList, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var options map[string]string
	err = decoder.Decode(&options)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to decode options")
	}

	var result TaskList
	err = decoder.Decode(&result)
	if err != nil {
		return options, nil, eris.Wrap(err, "failed to decode task list")
	}

	return options, result, nil
}

// ReadCacheIfFresh returns the cached task list if the cache file is
// newer than the script it was built from, otherwise os.ErrNotExist.
func ReadCacheIfFresh(file, script string) (map[string]string, TaskList, error) {
	cacheInfo, err := os.Stat(file)
	if err != nil {
		return nil, nil, err
	}

	scriptInfo, err := os.Stat(script)
	if err != nil {
		return nil, nil, err
	}

	if scriptInfo.ModTime().After(cacheInfo.ModTime()) {
		return nil, nil, os.ErrNotExist
	}

	return ReadCache(file)
}
