// lua_extension.go: Script extensions backed by gopher-lua states
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// A script type is a chunk returning its class table:
//
//	local Hello = {}
//
//	function Hello.new()
//	  return { count = 0 }
//	end
//
//	function Hello.actions(self)
//	  return {
//	    { name = "Say hello", menu = "Tools", enabled = true,
//	      execute = function(self) self.count = self.count + 1 end },
//	  }
//	end
//
//	return Hello
//
// new builds the instance table, which inherits the class through its
// metatable. The registry injects name, description, version, license and
// provider fields, and the methods resource(path) and preference(key).
// A class with abstract = true cannot be instantiated. destroy(self), when
// present, runs when the document is closed.

// compileScript parses and compiles the script of a type.
func compileScript(typeName, origin string, source []byte) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(bytes.NewReader(source), origin)
	if err != nil {
		return nil, NewTypeCompileError(typeName, origin, err)
	}
	proto, err := lua.Compile(chunk, origin)
	if err != nil {
		return nil, NewTypeCompileError(typeName, origin, err)
	}
	return proto, nil
}

// newScriptState opens a state with the base, table, string and math
// libraries only.
func newScriptState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetTop(0)
	return L
}

// callScript calls fn with args and returns its results.
func callScript(L *lua.LState, fn lua.LValue, args ...lua.LValue) (results []lua.LValue, err error) {
	top := L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			L.SetTop(top)
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	L.Push(fn)
	for _, arg := range args {
		L.Push(arg)
	}
	if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
		L.SetTop(top)
		return nil, err
	}

	n := L.GetTop() - top
	results = make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = L.Get(top + i + 1)
	}
	L.SetTop(top)
	return results, nil
}

// loadScriptClass runs the chunk of t and returns its class table.
func loadScriptClass(L *lua.LState, t *Type) (*lua.LTable, error) {
	results, err := callScript(L, L.NewFunctionFromProto(t.script))
	if err != nil {
		return nil, NewTypeCompileError(t.Name, t.Origin, err)
	}
	if len(results) == 0 {
		return nil, NewTypeNotExtensionError(t.Name)
	}
	class, ok := results[0].(*lua.LTable)
	if !ok {
		return nil, NewTypeNotExtensionError(t.Name)
	}
	return class, nil
}

// validateScriptType checks the class shape of a script type in a throwaway state.
func validateScriptType(t *Type) error {
	L := newScriptState()
	defer L.Close()

	class, err := loadScriptClass(L, t)
	if err != nil {
		return err
	}
	if lua.LVAsBool(class.RawGetString("abstract")) {
		return NewTypeAbstractError(t.Name)
	}
	if class.RawGetString("actions").Type() != lua.LTFunction {
		return NewTypeNotExtensionError(t.Name)
	}
	if class.RawGetString("new").Type() != lua.LTFunction {
		return NewTypeNoConstructorError(t.Name)
	}
	return nil
}

// scriptExtension is an Extension running a script in its own state. All
// calls into the state are serialized.
type scriptExtension struct {
	BaseExtension

	typeName string
	logger   Logger

	mu        sync.Mutex
	state     *lua.LState
	class     *lua.LTable
	self      *lua.LTable
	destroyed bool

	actionsOnce sync.Once
	actions     []*Action
}

// newScriptExtension creates a state, loads the class of t and calls its
// constructor.
func newScriptExtension(t *Type, logger Logger) (Extension, error) {
	L := newScriptState()
	class, err := loadScriptClass(L, t)
	if err != nil {
		L.Close()
		return nil, err
	}

	results, err := callScript(L, class.RawGetString("new"))
	if err != nil {
		L.Close()
		return nil, NewScriptError(t.Name, err)
	}
	var self *lua.LTable
	if len(results) > 0 {
		self, _ = results[0].(*lua.LTable)
	}
	if self == nil {
		L.Close()
		return nil, NewScriptError(t.Name, fmt.Errorf("new must return a table"))
	}
	if L.GetMetatable(self) == lua.LNil {
		mt := L.NewTable()
		mt.RawSetString("__index", class)
		L.SetMetatable(self, mt)
	}

	ext := &scriptExtension{
		typeName: t.Name,
		logger:   logger,
		state:    L,
		class:    class,
		self:     self,
	}
	self.RawSetString("resource", L.NewFunction(ext.luaResource))
	self.RawSetString("preference", L.NewFunction(ext.luaPreference))
	return ext, nil
}

func (e *scriptExtension) inject(binding Binding) {
	e.BaseExtension.inject(binding)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.self.RawSetString("name", lua.LString(e.Name()))
	e.self.RawSetString("description", lua.LString(e.Description()))
	e.self.RawSetString("version", lua.LString(e.Version()))
	e.self.RawSetString("license", lua.LString(e.License()))
	e.self.RawSetString("provider", lua.LString(e.Provider()))
}

// luaResource implements self:resource(path), returning the content of a
// bundle resource, or nil and an error message.
func (e *scriptExtension) luaResource(L *lua.LState) int {
	name := strings.TrimPrefix(L.CheckString(2), "/")
	loader := e.Loader()
	if loader == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("no loader"))
		return 2
	}
	data, err := loader.Resource(name)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(data))
	return 1
}

// luaPreference implements self:preference(key), returning nil when unset.
func (e *scriptExtension) luaPreference(L *lua.LState) int {
	key := L.CheckString(2)
	prefs := e.Preferences()
	if prefs == nil {
		L.Push(lua.LNil)
		return 1
	}
	value, ok := prefs.Get(key)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(value))
	return 1
}

// Actions calls the actions function of the class once and converts the
// returned tables into actions.
func (e *scriptExtension) Actions() []*Action {
	e.actionsOnce.Do(func() {
		e.actions = e.buildActions()
	})
	return e.actions
}

func (e *scriptExtension) buildActions() []*Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil
	}

	results, err := callScript(e.state, e.class.RawGetString("actions"), e.self)
	if err != nil {
		e.logger.Error("Extension actions failed", "type", e.typeName, "error", NewScriptError(e.typeName, err))
		return nil
	}
	if len(results) == 0 {
		return nil
	}
	list, ok := results[0].(*lua.LTable)
	if !ok {
		e.logger.Warn("Extension actions is not a table", "type", e.typeName)
		return nil
	}

	actions := make([]*Action, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		actions = append(actions, e.convertAction(entry))
	}
	return actions
}

func (e *scriptExtension) convertAction(entry *lua.LTable) *Action {
	execute := entry.RawGetString("execute")
	action := NewAction(func() { e.runAction(execute) })

	if name, ok := entry.RawGetString("name").(lua.LString); ok {
		action.SetProperty(ActionName, string(name))
	}
	if description, ok := entry.RawGetString("short_description").(lua.LString); ok {
		action.SetProperty(ActionShortDescription, string(description))
	}
	if menu, ok := entry.RawGetString("menu").(lua.LString); ok {
		action.SetProperty(ActionMenu, string(menu))
	}
	if mnemonic, ok := entry.RawGetString("mnemonic").(lua.LString); ok && mnemonic != "" {
		action.SetProperty(ActionMnemonic, []rune(string(mnemonic))[0])
	}
	if toolBar, ok := entry.RawGetString("tool_bar").(lua.LBool); ok {
		action.SetProperty(ActionToolBar, bool(toolBar))
	}
	if icon, ok := entry.RawGetString("icon").(lua.LString); ok && e.Loader() != nil {
		if content, err := e.Loader().Resource(strings.TrimPrefix(string(icon), "/")); err == nil {
			action.SetProperty(ActionSmallIcon, content)
		} else {
			e.logger.Warn("Extension action icon not found", "type", e.typeName, "icon", string(icon))
		}
	}
	action.SetEnabled(lua.LVAsBool(entry.RawGetString("enabled")))
	return action
}

func (e *scriptExtension) runAction(execute lua.LValue) {
	if execute.Type() != lua.LTFunction {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	if _, err := callScript(e.state, execute, e.self); err != nil {
		e.logger.Error("Extension action failed", "type", e.typeName, "error", NewScriptError(e.typeName, err))
	}
}

// Destroy calls the destroy function of the class, if any, and closes the state.
func (e *scriptExtension) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true

	if destroy := e.class.RawGetString("destroy"); destroy.Type() == lua.LTFunction {
		if _, err := callScript(e.state, destroy, e.self); err != nil {
			e.logger.Error("Extension destroy failed", "type", e.typeName, "error", NewScriptError(e.typeName, err))
		}
	}
	e.state.Close()
}
