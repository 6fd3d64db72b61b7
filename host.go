// host.go: Host application collaborators consumed by the extension registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"sync"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

// Document is the unit of user work an extension instance is bound to.
// Implementations are used as map keys and must be comparable, typically
// pointers.
type Document interface {
	DocumentName() string
}

// CollectionEventType tells whether a document was added or removed.
type CollectionEventType int

const (
	// DocumentAdded is raised after a document joins the collection.
	DocumentAdded CollectionEventType = iota
	// DocumentRemoved is raised after a document leaves the collection.
	DocumentRemoved
)

// String returns the event type name.
func (t CollectionEventType) String() string {
	switch t {
	case DocumentAdded:
		return "added"
	case DocumentRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// CollectionEvent is one change of the host's document collection.
type CollectionEvent struct {
	Type     CollectionEventType
	Document Document
}

// CollectionListener receives document collection changes synchronously, on
// the goroutine that changed the collection.
type CollectionListener func(event CollectionEvent)

// DocumentCollection is the host's set of open documents and its change feed.
type DocumentCollection interface {
	// Contains reports whether the document is currently open.
	Contains(doc Document) bool

	// Subscribe registers a listener and returns the function removing it.
	// The returned function must be safe to call from inside the listener
	// and more than once.
	Subscribe(listener CollectionListener) (unsubscribe func())
}

// Preferences is the user-configurable preference handle shared by all
// extensions.
type Preferences interface {
	Get(key string) (string, bool)
}

// UndoableEdit is one reversible change recorded by an extension.
type UndoableEdit interface {
	Undo() error
	Redo() error
	PresentationName() string
}

// UndoSink records edits into the host's undo log.
type UndoSink interface {
	PostEdit(edit UndoableEdit)
}

// DocumentController is the optional controller of the document an extension
// is bound to. It is opaque to the registry.
type DocumentController interface {
	ControlledDocument() Document
}

// MemoryDocument is a minimal Document with a unique identifier.
type MemoryDocument struct {
	id   string
	name string
}

// NewMemoryDocument creates a document named name with a random identifier.
func NewMemoryDocument(name string) *MemoryDocument {
	return &MemoryDocument{id: uuid.NewString(), name: name}
}

// DocumentName implements Document.
func (d *MemoryDocument) DocumentName() string { return d.name }

// ID returns the document identifier.
func (d *MemoryDocument) ID() string { return d.id }

// DocumentSet is an in-memory DocumentCollection for hosts that do not have
// one and for tests. Listeners are notified synchronously after the set
// changed, outside of its lock.
type DocumentSet struct {
	mu        sync.Mutex
	documents goset.Set[Document]
	listeners map[uint64]CollectionListener
	order     []uint64
	nextID    uint64
}

var _ DocumentCollection = (*DocumentSet)(nil)

// NewDocumentSet creates an empty document set.
func NewDocumentSet() *DocumentSet {
	return &DocumentSet{
		documents: goset.NewThreadUnsafeSet[Document](),
		listeners: make(map[uint64]CollectionListener),
	}
}

// Add opens a document. Adding an open document does nothing.
func (s *DocumentSet) Add(doc Document) {
	s.mu.Lock()
	added := s.documents.Add(doc)
	s.mu.Unlock()
	if added {
		s.notify(CollectionEvent{Type: DocumentAdded, Document: doc})
	}
}

// Remove closes a document. Removing an unknown document does nothing.
func (s *DocumentSet) Remove(doc Document) {
	s.mu.Lock()
	known := s.documents.Contains(doc)
	if known {
		s.documents.Remove(doc)
	}
	s.mu.Unlock()
	if known {
		s.notify(CollectionEvent{Type: DocumentRemoved, Document: doc})
	}
}

// Contains implements DocumentCollection.
func (s *DocumentSet) Contains(doc Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.Contains(doc)
}

// Len returns the number of open documents.
func (s *DocumentSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.Cardinality()
}

// ListenerCount returns the number of active listeners.
func (s *DocumentSet) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Subscribe implements DocumentCollection.
func (s *DocumentSet) Subscribe(listener CollectionListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, registered := range s.order {
				if registered == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// notify calls a snapshot of the listeners, in subscription order.
func (s *DocumentSet) notify(event CollectionEvent) {
	s.mu.Lock()
	snapshot := make([]CollectionListener, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.listeners[id])
	}
	s.mu.Unlock()

	for _, listener := range snapshot {
		listener(event)
	}
}
