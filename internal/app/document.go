package app

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/dshills/outliner/internal/outline/commander"
	"github.com/dshills/outliner/internal/outline/persist"
)

// Document is an open outline.
type Document struct {
	// Name is the storage name, or "Untitled-N" for scratch documents.
	Name string

	// Commander owns the outline and its history.
	Commander *commander.Commander

	scratch bool
}

// IsModified reports unsaved changes.
func (d *Document) IsModified() bool {
	return d.Commander.Changed()
}

// IsScratch reports whether the document was never saved.
func (d *Document) IsScratch() bool {
	return d.scratch
}

// DocumentManager tracks open documents. The map is guarded by a mutex;
// each Commander is still single-threaded and callers must serialize
// commands on one document themselves.
type DocumentManager struct {
	mu        sync.RWMutex
	documents map[string]*Document
	active    *Document
	order     []string
	counter   int

	storage Storage
	log     *Logger
	opts    []commander.Option
}

// NewDocumentManager creates a manager. opts are applied to every
// Commander it creates; pass commander.WithGenerator so that all documents
// share one id generator.
func NewDocumentManager(storage Storage, log *Logger, opts ...commander.Option) *DocumentManager {
	return &DocumentManager{
		documents: make(map[string]*Document),
		storage:   storage,
		log:       log.WithComponent("documents"),
		opts:      opts,
	}
}

// Create opens a new empty scratch document and makes it active.
func (dm *DocumentManager) Create() (*Document, error) {
	c, err := commander.New(dm.opts...)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.counter++
	name := "Untitled"
	if dm.counter > 1 {
		name += "-" + strconv.Itoa(dm.counter)
	}
	doc := &Document{Name: name, Commander: c, scratch: true}
	dm.addLocked(doc)
	return doc, nil
}

// Open loads name from storage, or returns it if already open. The
// document becomes active.
func (dm *DocumentManager) Open(ctx context.Context, name string) (*Document, error) {
	dm.mu.Lock()
	if doc, ok := dm.documents[name]; ok {
		dm.active = doc
		dm.mu.Unlock()
		return doc, nil
	}
	dm.mu.Unlock()

	if dm.storage == nil {
		return nil, NewOperationError("open", name, ErrNoStorage)
	}
	data, err := dm.storage.Load(ctx, name)
	if err != nil {
		return nil, NewOperationError("open", name, err)
	}
	c, err := persist.Restore(data, dm.opts...)
	if err != nil {
		return nil, NewOperationError("open", name, err)
	}
	dm.log.Info("opened %s (%d nodes)", name, len(data.Records))

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if doc, ok := dm.documents[name]; ok {
		dm.active = doc
		return doc, nil
	}
	doc := &Document{Name: name, Commander: c}
	dm.addLocked(doc)
	return doc, nil
}

func (dm *DocumentManager) addLocked(doc *Document) {
	dm.documents[doc.Name] = doc
	dm.order = append(dm.order, doc.Name)
	dm.active = doc
}

// Save writes the named document to storage and clears its modified flag.
func (dm *DocumentManager) Save(ctx context.Context, name string) error {
	doc, ok := dm.Get(name)
	if !ok {
		return NewOperationError("save", name, ErrDocumentNotFound)
	}
	if doc.IsScratch() {
		return NewOperationError("save", name, ErrScratchDocument)
	}
	return dm.write(ctx, doc, name)
}

// SaveAs writes doc under a new name and renames it.
func (dm *DocumentManager) SaveAs(ctx context.Context, doc *Document, name string) error {
	dm.mu.RLock()
	other, taken := dm.documents[name]
	dm.mu.RUnlock()
	if taken && other != doc {
		return NewOperationError("save", name, ErrDocumentAlreadyOpen)
	}
	if err := dm.write(ctx, doc, name); err != nil {
		return err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if old := doc.Name; old != name {
		delete(dm.documents, old)
		if i := slices.Index(dm.order, old); i >= 0 {
			dm.order[i] = name
		}
		dm.documents[name] = doc
		doc.Name = name
	}
	doc.scratch = false
	return nil
}

func (dm *DocumentManager) write(ctx context.Context, doc *Document, name string) error {
	if dm.storage == nil {
		return NewOperationError("save", name, ErrNoStorage)
	}
	data := persist.Snapshot(doc.Commander)
	if err := dm.storage.Save(ctx, name, data); err != nil {
		dm.log.Error("save %s: %v", name, err)
		return NewOperationError("save", name, err)
	}
	doc.Commander.SetChanged(false)
	dm.log.Info("saved %s (%d nodes)", name, len(data.Records))
	return nil
}

// SaveAll saves every modified named document.
func (dm *DocumentManager) SaveAll(ctx context.Context) error {
	var errs []error
	for _, doc := range dm.Dirty() {
		if doc.IsScratch() {
			continue
		}
		if err := dm.Save(ctx, doc.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the named document. Unless force is set, a modified
// document is left open and ErrUnsavedChanges returned.
func (dm *DocumentManager) Close(name string, force bool) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.documents[name]
	if !ok {
		return NewOperationError("close", name, ErrDocumentNotFound)
	}
	if !force && doc.IsModified() {
		return NewOperationError("close", name, ErrUnsavedChanges)
	}
	delete(dm.documents, name)
	if i := slices.Index(dm.order, name); i >= 0 {
		dm.order = slices.Delete(dm.order, i, i+1)
	}
	if dm.active == doc {
		dm.active = nil
		if n := len(dm.order); n > 0 {
			dm.active = dm.documents[dm.order[n-1]]
		}
	}
	return nil
}

// Active returns the active document, or nil.
func (dm *DocumentManager) Active() *Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.active
}

// SetActive makes the named document active.
func (dm *DocumentManager) SetActive(name string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.documents[name]
	if !ok {
		return ErrDocumentNotFound
	}
	dm.active = doc
	return nil
}

// Get returns an open document by name.
func (dm *DocumentManager) Get(name string) (*Document, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	doc, ok := dm.documents[name]
	return doc, ok
}

// All returns the open documents in the order they were opened.
func (dm *DocumentManager) All() []*Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	docs := make([]*Document, 0, len(dm.order))
	for _, name := range dm.order {
		docs = append(docs, dm.documents[name])
	}
	return docs
}

// Count returns the number of open documents.
func (dm *DocumentManager) Count() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.documents)
}

// Dirty returns the modified documents in open order.
func (dm *DocumentManager) Dirty() []*Document {
	var dirty []*Document
	for _, doc := range dm.All() {
		if doc.IsModified() {
			dirty = append(dirty, doc)
		}
	}
	return dirty
}

// HasDirty reports whether any document is modified.
func (dm *DocumentManager) HasDirty() bool {
	return len(dm.Dirty()) > 0
}

// Next activates and returns the document after the active one, wrapping.
func (dm *DocumentManager) Next() *Document {
	return dm.cycle(1)
}

// Previous activates and returns the document before the active one.
func (dm *DocumentManager) Previous() *Document {
	return dm.cycle(-1)
}

func (dm *DocumentManager) cycle(step int) *Document {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if len(dm.order) == 0 || dm.active == nil {
		return nil
	}
	i := slices.Index(dm.order, dm.active.Name)
	if i < 0 {
		return dm.active
	}
	n := len(dm.order)
	dm.active = dm.documents[dm.order[((i+step)%n+n)%n]]
	return dm.active
}
