package logic

// Kind is a handle to a kind slot in a KindTable. Two handles denote the
// same kind iff they share a representative after following union links.
// The zero Kind is "unknown", used for partially resolved terms.
type Kind struct {
	table *KindTable
	slot  int
}

func (k Kind) IsZero() bool {
	return k.table == nil
}

// Canonical returns the handle of k's representative slot. Canonical
// handles are comparable with ==, which makes them usable as map keys.
func (k Kind) Canonical() Kind {
	if k.table == nil {
		return k
	}
	return Kind{table: k.table, slot: k.table.find(k.slot)}
}

// Same reports whether k and o are the same kind. Unknown kinds are never
// the same as anything.
func (k Kind) Same(o Kind) bool {
	if k.table == nil || o.table == nil || k.table != o.table {
		return false
	}
	return k.table.find(k.slot) == o.table.find(o.slot)
}

// Name returns the name of the representative.
func (k Kind) Name() string {
	if k.table == nil {
		return "?"
	}
	return k.table.names[k.table.find(k.slot)]
}

func (k Kind) String() string {
	return k.Name()
}

// KindTable owns the kinds of one namespace. Names are write-once; a name
// either introduces a new slot or aliases an existing one.
type KindTable struct {
	parent []int
	names  []string
	byName map[string]int
	order  []string
	undo   []func()
}

func NewKindTable() *KindTable {
	return &KindTable{
		byName: make(map[string]int),
	}
}

func (t *KindTable) find(slot int) int {
	for t.parent[slot] != slot {
		slot = t.parent[slot]
	}
	return slot
}

// Lookup returns the kind named name.
func (t *KindTable) Lookup(name string) (Kind, bool) {
	slot, ok := t.byName[name]
	if !ok {
		return Kind{}, false
	}
	return Kind{table: t, slot: slot}, true
}

// Has reports whether name is taken, whether defined or as an alias.
func (t *KindTable) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Define introduces a new kind.
func (t *KindTable) Define(name string) (Kind, error) {
	if t.Has(name) {
		return Kind{}, NewDataError("define kind", name, "kind already defined or referenced")
	}
	slot := len(t.parent)
	t.parent = append(t.parent, slot)
	t.names = append(t.names, name)
	t.addName(name, slot)
	t.undo = append(t.undo, func() {
		t.parent = t.parent[:slot]
		t.names = t.names[:slot]
	})
	return Kind{table: t, slot: slot}, nil
}

// Bind makes newName another name for old.
func (t *KindTable) Bind(old Kind, newName string) error {
	if old.table != t {
		return NewDataError("bind kind", newName, "kind to bind is not from this namespace")
	}
	if old.Name() == newName {
		return NewDataError("bind kind", newName, "old and new kind are identical")
	}
	if t.Has(newName) {
		return NewDataError("bind kind", newName, "kind already defined or referenced")
	}
	t.addName(newName, t.find(old.slot))
	return nil
}

// Union identifies two existing kinds. Handles issued before the union keep
// working and compare equal afterwards.
func (t *KindTable) Union(a, b Kind) error {
	if a.table != t || b.table != t {
		return NewDataError("bind kind", b.Name(), "kind is not from this namespace")
	}
	ra, rb := t.find(a.slot), t.find(b.slot)
	if ra == rb {
		return NewDataError("bind kind", b.Name(), "kinds are already bound to "+a.Name())
	}
	t.parent[rb] = ra
	t.undo = append(t.undo, func() {
		t.parent[rb] = rb
	})
	return nil
}

func (t *KindTable) addName(name string, slot int) {
	t.byName[name] = slot
	t.order = append(t.order, name)
	n := len(t.order) - 1
	t.undo = append(t.undo, func() {
		delete(t.byName, name)
		t.order = t.order[:n]
	})
}

// Names returns every kind name in the order it was introduced.
func (t *KindTable) Names() []string {
	return append([]string(nil), t.order...)
}

// IsAlias reports whether name refers to a kind introduced under another
// name.
func (t *KindTable) IsAlias(name string) bool {
	k, ok := t.Lookup(name)
	if !ok {
		return false
	}
	return k.Name() != name
}

// Len returns the number of names in the table.
func (t *KindTable) Len() int {
	return len(t.order)
}

// Mark returns a checkpoint for Rollback.
func (t *KindTable) Mark() int {
	return len(t.undo)
}

// Rollback undoes every change made since mark.
func (t *KindTable) Rollback(mark int) {
	for i := len(t.undo) - 1; i >= mark; i-- {
		t.undo[i]()
	}
	t.undo = t.undo[:mark]
}
