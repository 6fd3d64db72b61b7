// action_test.go: action properties and change notification tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_DisabledByDefault(t *testing.T) {
	action := NewAction(nil)
	assert.False(t, action.Enabled())
	assert.Nil(t, action.Property(ActionEnabled))
	assert.Empty(t, action.Name())
	assert.Zero(t, action.Mnemonic())

	// Executing an action without behavior is harmless.
	action.Execute()
}

func TestAction_NotifiesOnlyOnChange(t *testing.T) {
	action := NewAction(nil)
	var events []PropertyChangeEvent
	action.AddPropertyChangeListener(func(e PropertyChangeEvent) {
		events = append(events, e)
	})

	action.SetProperty(ActionName, "Export")
	action.SetProperty(ActionName, "Export")
	action.SetEnabled(true)
	action.SetEnabled(true)
	action.SetProperty(ActionSmallIcon, []byte("PNG"))
	action.SetProperty(ActionSmallIcon, []byte("PNG"))
	action.SetProperty(ActionMenu, nil)

	require.Len(t, events, 3)
	assert.Equal(t, ActionName, events[0].Property)
	assert.Nil(t, events[0].OldValue)
	assert.Equal(t, "Export", events[0].NewValue)
	assert.Same(t, action, events[0].Action)
	assert.Equal(t, ActionEnabled, events[1].Property)
	assert.Equal(t, true, events[1].NewValue)
	assert.Equal(t, ActionSmallIcon, events[2].Property)

	action.SetProperty(ActionName, "Export all")
	require.Len(t, events, 4)
	assert.Equal(t, "Export", events[3].OldValue)
	assert.Equal(t, "Export all", events[3].NewValue)

	action.SetProperty(ActionName, nil)
	require.Len(t, events, 5)
	assert.Nil(t, action.Property(ActionName))
}

func TestAction_RemoveListener(t *testing.T) {
	action := NewAction(nil)
	var first, second int
	removeFirst := action.AddPropertyChangeListener(func(PropertyChangeEvent) { first++ })
	action.AddPropertyChangeListener(func(PropertyChangeEvent) { second++ })

	action.SetEnabled(true)
	removeFirst()
	removeFirst()
	action.SetEnabled(false)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestAction_ListenerMayUpdateAction(t *testing.T) {
	action := NewAction(nil)
	action.AddPropertyChangeListener(func(e PropertyChangeEvent) {
		if e.Property == ActionName {
			action.SetProperty(ActionShortDescription, "About "+e.NewValue.(string))
		}
	})

	action.SetProperty(ActionName, "Export")
	assert.Equal(t, "About Export", action.ShortDescription())
}

func TestAction_ConcurrentUpdates(t *testing.T) {
	action := NewAction(nil)
	var mu sync.Mutex
	count := 0
	action.AddPropertyChangeListener(func(PropertyChangeEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action.SetEnabled(i%2 == 0)
			_ = action.Enabled()
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, count, 1)
}

func TestActionProperty_String(t *testing.T) {
	assert.Equal(t, "NAME", ActionName.String())
	assert.Equal(t, "SHORT_DESCRIPTION", ActionShortDescription.String())
	assert.Equal(t, "SMALL_ICON", ActionSmallIcon.String())
	assert.Equal(t, "MNEMONIC", ActionMnemonic.String())
	assert.Equal(t, "TOOL_BAR", ActionToolBar.String())
	assert.Equal(t, "MENU", ActionMenu.String())
	assert.Equal(t, "ENABLED", ActionEnabled.String())
	assert.Equal(t, "UNKNOWN", ActionProperty(99).String())
}

func TestNewActionFromResources(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bundle.zip")
	writeBundle(t, archive, map[string]string{
		"com/example/Actions.properties": "ExportAction.NAME=Export\n" +
			"ExportAction.SHORT_DESCRIPTION=Export the plan\n" +
			"ExportAction.SMALL_ICON=/com/example/export.png\n" +
			"ExportAction.MNEMONIC=E\n" +
			"ExportAction.TOOL_BAR=true\n" +
			"ExportAction.MENU=File\n",
		"com/example/Actions_fr.properties": "ExportAction.NAME=Exporter\n",
		"com/example/export.png":            "PNG",
	})

	t.Run("default_locale", func(t *testing.T) {
		loader, err := NewIsolatedLoader(LoaderConfig{Sources: []string{archive}}, nil)
		require.NoError(t, err)
		defer loader.Close()

		executed := 0
		action, err := NewActionFromResources(loader, "com/example/Actions", "ExportAction", true, func() { executed++ })
		require.NoError(t, err)

		assert.Equal(t, "Export", action.Name())
		assert.Equal(t, "Export the plan", action.ShortDescription())
		assert.Equal(t, []byte("PNG"), action.SmallIcon())
		assert.Equal(t, 'E', action.Mnemonic())
		assert.True(t, action.ToolBar())
		assert.Equal(t, "File", action.Menu())
		assert.True(t, action.Enabled())

		action.Execute()
		assert.Equal(t, 1, executed)
	})

	t.Run("localized", func(t *testing.T) {
		loader, err := NewIsolatedLoader(LoaderConfig{Sources: []string{archive}, Locale: "fr_FR"}, nil)
		require.NoError(t, err)
		defer loader.Close()

		action, err := NewActionFromResources(loader, "com/example/Actions", "ExportAction", false, nil)
		require.NoError(t, err)
		assert.Equal(t, "Exporter", action.Name())
		assert.Equal(t, "Export the plan", action.ShortDescription())
		assert.False(t, action.Enabled())
	})

	t.Run("missing_keys_stay_unset", func(t *testing.T) {
		loader, err := NewIsolatedLoader(LoaderConfig{Sources: []string{archive}}, nil)
		require.NoError(t, err)
		defer loader.Close()

		action, err := NewActionFromResources(loader, "com/example/Actions", "OtherAction", false, nil)
		require.NoError(t, err)
		assert.Empty(t, action.Name())
		assert.Nil(t, action.SmallIcon())
	})

	t.Run("missing_resource", func(t *testing.T) {
		loader, err := NewIsolatedLoader(LoaderConfig{Sources: []string{archive}}, nil)
		require.NoError(t, err)
		defer loader.Close()

		_, err = NewActionFromResources(loader, "com/example/Missing", "ExportAction", false, nil)
		require.Error(t, err)
	})
}
