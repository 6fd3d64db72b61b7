// host_test.go: in-memory document collection tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDocument(t *testing.T) {
	a := NewMemoryDocument("plan")
	b := NewMemoryDocument("plan")

	assert.Equal(t, "plan", a.DocumentName())
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestDocumentSet_AddRemove(t *testing.T) {
	set := NewDocumentSet()
	doc := NewMemoryDocument("plan")

	var events []CollectionEvent
	set.Subscribe(func(e CollectionEvent) { events = append(events, e) })

	assert.False(t, set.Contains(doc))
	set.Add(doc)
	set.Add(doc)
	assert.True(t, set.Contains(doc))
	assert.Equal(t, 1, set.Len())

	set.Remove(doc)
	set.Remove(doc)
	assert.False(t, set.Contains(doc))
	assert.Zero(t, set.Len())

	require.Len(t, events, 2)
	assert.Equal(t, DocumentAdded, events[0].Type)
	assert.Equal(t, DocumentRemoved, events[1].Type)
	assert.Same(t, doc, events[1].Document)
	assert.Equal(t, "added", DocumentAdded.String())
	assert.Equal(t, "removed", DocumentRemoved.String())
	assert.Equal(t, "unknown", CollectionEventType(7).String())
}

func TestDocumentSet_Unsubscribe(t *testing.T) {
	set := NewDocumentSet()
	calls := 0
	unsubscribe := set.Subscribe(func(CollectionEvent) { calls++ })
	assert.Equal(t, 1, set.ListenerCount())

	set.Add(NewMemoryDocument("one"))
	unsubscribe()
	unsubscribe()
	set.Add(NewMemoryDocument("two"))

	assert.Equal(t, 1, calls)
	assert.Zero(t, set.ListenerCount())
}

func TestDocumentSet_UnsubscribeFromListener(t *testing.T) {
	set := NewDocumentSet()
	calls := 0
	var unsubscribe func()
	unsubscribe = set.Subscribe(func(CollectionEvent) {
		calls++
		unsubscribe()
	})

	set.Add(NewMemoryDocument("one"))
	set.Add(NewMemoryDocument("two"))
	assert.Equal(t, 1, calls)
}

func TestDocumentSet_Concurrent(t *testing.T) {
	set := NewDocumentSet()
	var mu sync.Mutex
	added := 0
	set.Subscribe(func(e CollectionEvent) {
		if e.Type == DocumentAdded {
			mu.Lock()
			added++
			mu.Unlock()
		}
	})

	docs := make([]*MemoryDocument, 32)
	for i := range docs {
		docs[i] = NewMemoryDocument("doc")
	}

	var wg sync.WaitGroup
	for _, doc := range docs {
		wg.Add(1)
		go func(doc *MemoryDocument) {
			defer wg.Done()
			set.Add(doc)
			_ = set.Contains(doc)
		}(doc)
	}
	wg.Wait()

	assert.Equal(t, len(docs), set.Len())
	assert.Equal(t, len(docs), added)
}
