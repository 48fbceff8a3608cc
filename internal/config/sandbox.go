package config

import (
	lua "github.com/yuin/gopher-lua"
)

// Only these standard libraries are opened. os, io, package, debug and
// coroutine are never loaded.
var sandboxLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// Base library functions that can load code, reach the process or bypass
// the read-only platform table.
var sandboxBlocked = []string{
	"require", "module",
	"dofile", "loadfile", "load", "loadstring",
	"getfenv", "setfenv",
	"rawset", "rawget", "rawequal",
	"getmetatable", "setmetatable",
	"collectgarbage", "newproxy",
	"print", // stdout belongs to the editor protocol
}

// sandboxLuaVM removes globals a settings file has no business touching.
// It is safe to call on a state opened with the full standard library.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{"os", "io", "package", "debug", "channel", "coroutine"} {
		L.SetGlobal(name, lua.LNil)
	}
	for _, name := range sandboxBlocked {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates the Lua state settings files are evaluated in.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range sandboxLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	sandboxLuaVM(L)
	return L
}
