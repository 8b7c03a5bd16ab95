package history

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/propertypath"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// DefaultLimit is the number of records kept when no limit is configured.
const DefaultLimit = 30

// SceneApplier performs the structural half of a replay.
type SceneApplier interface {
	AddNodes(nodes ...*scene.Node)
	RemoveNodes(nodes ...*scene.Node)
	MergeNodes(children []*scene.Node, parent *scene.Node) *scene.Node
	UnmergeNodes(parent *scene.Node) []*scene.Node
}

// Manager is the transaction log. The cursor is the index of the last
// applied record; -1 means nothing is applied.
//
// Manager is not safe for concurrent use.
type Manager struct {
	applier SceneApplier
	limit   int
	list    []Record
	index   int
	now     func() time.Time
}

// NewManager returns an empty log replaying structural operations through
// applier. A limit below 1 selects DefaultLimit.
func NewManager(applier SceneApplier, limit int) *Manager {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Manager{
		applier: applier,
		limit:   limit,
		index:   -1,
		now:     time.Now,
	}
}

// Add stores r after the cursor, discarding any redo tail. No-op diffs are
// pruned first; Add reports false and leaves the log untouched when nothing
// remains.
func (m *Manager) Add(r Record) bool {
	r, ok := normalize(r)
	if !ok {
		return false
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Time.IsZero() {
		r.Time = m.now()
	}
	m.list = append(m.list[:m.index+1], r)
	m.trim()
	m.index = len(m.list) - 1
	logger.Debug("history record added", "id", r.ID, "type", r.Type.String(), "len", len(m.list))
	return true
}

func (m *Manager) trim() {
	if over := len(m.list) - m.limit; over > 0 {
		m.list = slices.Delete(m.list, 0, over)
		m.index = max(m.index-over, -1)
	}
}

// Undo reverts the record at the cursor and moves the cursor back.
func (m *Manager) Undo() bool {
	if !m.Undoable() {
		return false
	}
	m.execute(m.list[m.index], true)
	m.index--
	return true
}

// Redo moves the cursor forward and re-applies that record.
func (m *Manager) Redo() bool {
	if !m.Redoable() {
		return false
	}
	m.index++
	m.execute(m.list[m.index], false)
	return true
}

func (m *Manager) Undoable() bool {
	return len(m.list) > 0 && m.index > -1
}

func (m *Manager) Redoable() bool {
	return len(m.list) > 0 && m.index < len(m.list)-1
}

// Clear empties the log.
func (m *Manager) Clear() {
	m.list = nil
	m.index = -1
}

func (m *Manager) Len() int   { return len(m.list) }
func (m *Manager) Index() int { return m.index }
func (m *Manager) Limit() int { return m.limit }

// Current returns the record at the cursor.
func (m *Manager) Current() (Record, bool) {
	if m.index < 0 || m.index >= len(m.list) {
		return Record{}, false
	}
	return m.list[m.index], true
}

// All returns a copy of the records, oldest first.
func (m *Manager) All() []Record {
	return slices.Clone(m.list)
}

// SetLimit changes the capacity, evicting the oldest records if needed.
func (m *Manager) SetLimit(n int) {
	if n < 1 {
		n = DefaultLimit
	}
	m.limit = n
	m.trim()
}

func (m *Manager) execute(r Record, undo bool) {
	switch r.Type {
	case OpUpdate:
		for _, info := range r.Infos {
			for path, d := range info.Props {
				v := d.New
				if undo {
					v = d.Old
				}
				if !propertypath.Set(info.Target, path, value.Native(value.Clone(v))) {
					logger.Warn("history replay skipped property", "property", path, "record", r.ID)
				}
			}
		}
	case OpAdd, OpDelete:
		insert := (r.Type == OpAdd) != undo
		for _, info := range r.Infos {
			n, ok := info.Target.(*scene.Node)
			if !ok || (info.TargetType != TargetMesh && info.TargetType != TargetTransformNode) {
				continue
			}
			if insert {
				m.applier.AddNodes(n)
			} else {
				m.applier.RemoveNodes(n)
			}
		}
	case OpCombine, OpUncombine:
		merge := (r.Type == OpCombine) != undo
		for _, g := range r.Combine {
			if merge {
				m.applier.MergeNodes(g.Children, g.Parent)
			} else {
				m.applier.UnmergeNodes(g.Parent)
			}
		}
	}
}

// Summary describes a record for listing.
type Summary struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Type    OpType    `json:"type"`
	Targets []string  `json:"targets,omitempty"`
	Applied bool      `json:"applied"`
}

// Summaries lists every record, oldest first.
func (m *Manager) Summaries() []Summary {
	out := make([]Summary, 0, len(m.list))
	for i, r := range m.list {
		out = append(out, Summary{
			ID:      r.ID,
			Time:    r.Time,
			Type:    r.Type,
			Targets: r.Targets(),
			Applied: i <= m.index,
		})
	}
	return out
}
