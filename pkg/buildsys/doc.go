// Package buildsys implements the small task runner behind qcabuild.
// Tasks declare their prerequisites by name and carry either shell
// commands (executed through mvdan.cc/sh) or plain Go functions. Extra
// tasks can be declared in an optional tasks.star file next to the conda
// recipes; Starlark keeps those definitions portable across platforms.
package buildsys
