// action.go: Extension actions as observable property bags
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ActionProperty enumerates the properties an Action may hold.
type ActionProperty int

const (
	// ActionName is the display name (string).
	ActionName ActionProperty = iota
	// ActionShortDescription is the tool tip text (string).
	ActionShortDescription
	// ActionSmallIcon is the icon content ([]byte).
	ActionSmallIcon
	// ActionMnemonic is the mnemonic character (rune).
	ActionMnemonic
	// ActionToolBar tells whether the action belongs to the tool bar (bool).
	ActionToolBar
	// ActionMenu is the name of the containing menu (string).
	ActionMenu
	// ActionEnabled is the enabled state (bool).
	ActionEnabled
)

var actionPropertyNames = [...]string{
	ActionName:             "NAME",
	ActionShortDescription: "SHORT_DESCRIPTION",
	ActionSmallIcon:        "SMALL_ICON",
	ActionMnemonic:         "MNEMONIC",
	ActionToolBar:          "TOOL_BAR",
	ActionMenu:             "MENU",
	ActionEnabled:          "ENABLED",
}

// String returns the property key used in resource files, e.g. "SHORT_DESCRIPTION".
func (p ActionProperty) String() string {
	if p < 0 || int(p) >= len(actionPropertyNames) {
		return "UNKNOWN"
	}
	return actionPropertyNames[p]
}

// PropertyChangeEvent describes one property change of an Action.
type PropertyChangeEvent struct {
	Action   *Action
	Property ActionProperty
	OldValue any
	NewValue any
}

// PropertyChangeListener observes Action property changes.
type PropertyChangeListener func(event PropertyChangeEvent)

// Action is an operation an extension offers to the user. The host UI reads
// its properties and observes their changes; Execute is called when the user
// triggers it. New actions are disabled.
type Action struct {
	mu        sync.Mutex
	values    map[ActionProperty]any
	listeners map[uint64]PropertyChangeListener
	order     []uint64
	nextID    uint64
	execute   func()
}

// NewAction creates a disabled action running execute when triggered.
func NewAction(execute func()) *Action {
	return &Action{
		values:    make(map[ActionProperty]any),
		listeners: make(map[uint64]PropertyChangeListener),
		execute:   execute,
	}
}

// NewActionFromResources creates an action whose properties are read from the
// properties resource resourceBase (for example "com/example/Actions") through
// the loader. Keys are prefixed by actionPrefix and a dot, as in
// "ExportAction.NAME"; every key is optional. SMALL_ICON names a resource of
// the loader whose bytes become the icon content.
func NewActionFromResources(loader *IsolatedLoader, resourceBase, actionPrefix string, enabled bool, execute func()) (*Action, error) {
	values, err := loader.Properties(resourceBase)
	if err != nil {
		return nil, err
	}

	action := NewAction(execute)
	prefix := actionPrefix + "."
	lookup := func(p ActionProperty) (string, bool) {
		v, ok := values[prefix+p.String()]
		return v, ok
	}

	if name, ok := lookup(ActionName); ok {
		action.SetProperty(ActionName, name)
	}
	if description, ok := lookup(ActionShortDescription); ok {
		action.SetProperty(ActionShortDescription, description)
	}
	if icon, ok := lookup(ActionSmallIcon); ok {
		content, err := loader.Resource(strings.TrimPrefix(icon, "/"))
		if err != nil {
			return nil, err
		}
		action.SetProperty(ActionSmallIcon, content)
	}
	if mnemonic, ok := lookup(ActionMnemonic); ok && mnemonic != "" {
		action.SetProperty(ActionMnemonic, []rune(mnemonic)[0])
	}
	if toolBar, ok := lookup(ActionToolBar); ok {
		flag, _ := strconv.ParseBool(toolBar)
		action.SetProperty(ActionToolBar, flag)
	}
	if menu, ok := lookup(ActionMenu); ok {
		action.SetProperty(ActionMenu, menu)
	}
	action.SetEnabled(enabled)
	return action, nil
}

// AddPropertyChangeListener registers listener and returns the function
// removing it.
func (a *Action) AddPropertyChangeListener(listener PropertyChangeListener) (remove func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = listener
	a.order = append(a.order, id)
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.listeners[id]; !ok {
			return
		}
		delete(a.listeners, id)
		for i, registered := range a.order {
			if registered == id {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}
}

// Property returns the value of a property, nil when unset.
func (a *Action) Property(property ActionProperty) any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.values[property]
}

// SetProperty updates a property and notifies listeners, only when the new
// value differs from the current one.
func (a *Action) SetProperty(property ActionProperty, value any) {
	a.mu.Lock()
	old, set := a.values[property]
	if set && reflect.DeepEqual(old, value) || !set && value == nil {
		a.mu.Unlock()
		return
	}
	if value == nil {
		delete(a.values, property)
	} else {
		a.values[property] = value
	}
	listeners := make([]PropertyChangeListener, 0, len(a.order))
	for _, id := range a.order {
		listeners = append(listeners, a.listeners[id])
	}
	a.mu.Unlock()

	event := PropertyChangeEvent{Action: a, Property: property, OldValue: old, NewValue: value}
	for _, listener := range listeners {
		listener(event)
	}
}

// SetEnabled sets the ActionEnabled property.
func (a *Action) SetEnabled(enabled bool) {
	a.SetProperty(ActionEnabled, enabled)
}

// Enabled reports whether the action is enabled. Actions are disabled until
// enabled explicitly.
func (a *Action) Enabled() bool {
	enabled, _ := a.Property(ActionEnabled).(bool)
	return enabled
}

// Name returns the display name.
func (a *Action) Name() string {
	name, _ := a.Property(ActionName).(string)
	return name
}

// ShortDescription returns the short description.
func (a *Action) ShortDescription() string {
	description, _ := a.Property(ActionShortDescription).(string)
	return description
}

// SmallIcon returns the icon content, nil when the action has no icon.
func (a *Action) SmallIcon() []byte {
	icon, _ := a.Property(ActionSmallIcon).([]byte)
	return icon
}

// Mnemonic returns the mnemonic character, 0 when unset.
func (a *Action) Mnemonic() rune {
	mnemonic, _ := a.Property(ActionMnemonic).(rune)
	return mnemonic
}

// ToolBar tells whether the action should appear in the tool bar.
func (a *Action) ToolBar() bool {
	toolBar, _ := a.Property(ActionToolBar).(bool)
	return toolBar
}

// Menu returns the name of the menu containing the action.
func (a *Action) Menu() string {
	menu, _ := a.Property(ActionMenu).(string)
	return menu
}

// Execute runs the action. The host calls it when the user triggers the action.
func (a *Action) Execute() {
	if a.execute != nil {
		a.execute()
	}
}
