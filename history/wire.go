package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// Resolver finds nodes by name, including nodes currently out of the scene.
type Resolver interface {
	Find(name string) (*scene.Node, bool)
}

type wireLog struct {
	Limit   int          `json:"limit"`
	Index   int          `json:"index"`
	Records []wireRecord `json:"records"`
}

type wireRecord struct {
	ID      string      `json:"id"`
	Time    time.Time   `json:"time"`
	Type    OpType      `json:"type"`
	Infos   []wireInfo  `json:"infos,omitempty"`
	Combine []wireGroup `json:"combine,omitempty"`
}

type wireInfo struct {
	Target     string              `json:"target"`
	TargetType TargetType          `json:"targetType"`
	Props      map[string]wireDiff `json:"props,omitempty"`
}

type wireDiff struct {
	Old value.Typed `json:"oldValue"`
	New value.Typed `json:"newValue"`
}

type wireGroup struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
}

// Marshal encodes the log as JSON. Targets are referenced by node name and
// values carry their kind. Only node targets can be encoded.
func (m *Manager) Marshal() ([]byte, error) {
	out := wireLog{Limit: m.limit, Index: m.index, Records: make([]wireRecord, 0, len(m.list))}
	for _, r := range m.list {
		wr := wireRecord{ID: r.ID, Time: r.Time, Type: r.Type}
		for _, info := range r.Infos {
			n, ok := info.Target.(*scene.Node)
			if !ok {
				return nil, fmt.Errorf("encode record %s: target %T is not a node", r.ID, info.Target)
			}
			wi := wireInfo{Target: n.Name, TargetType: info.TargetType}
			if len(info.Props) > 0 {
				wi.Props = make(map[string]wireDiff, len(info.Props))
				for path, d := range info.Props {
					wi.Props[path] = wireDiff{Old: value.Typed{Value: d.Old}, New: value.Typed{Value: d.New}}
				}
			}
			wr.Infos = append(wr.Infos, wi)
		}
		for _, g := range r.Combine {
			wg := wireGroup{Parent: g.Parent.Name, Children: make([]string, 0, len(g.Children))}
			for _, c := range g.Children {
				wg.Children = append(wg.Children, c.Name)
			}
			wr.Combine = append(wr.Combine, wg)
		}
		out.Records = append(out.Records, wr)
	}
	return json.Marshal(out)
}

// Unmarshal replaces the log with the records in data, resolving node names
// through r. The log is left untouched on error.
func (m *Manager) Unmarshal(data []byte, r Resolver) error {
	var in wireLog
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	find := func(name string) (*scene.Node, error) {
		n, ok := r.Find(name)
		if !ok {
			return nil, fmt.Errorf("decode history: %q: %w", name, scene.ErrNodeNotFound)
		}
		return n, nil
	}

	list := make([]Record, 0, len(in.Records))
	for _, wr := range in.Records {
		rec := Record{ID: wr.ID, Time: wr.Time, Type: wr.Type}
		for _, wi := range wr.Infos {
			n, err := find(wi.Target)
			if err != nil {
				return err
			}
			info := Info{Target: n, TargetType: wi.TargetType}
			if len(wi.Props) > 0 {
				info.Props = make(map[string]Diff, len(wi.Props))
				for path, d := range wi.Props {
					info.Props[path] = Diff{Old: d.Old.Value, New: d.New.Value}
				}
			}
			rec.Infos = append(rec.Infos, info)
		}
		for _, wg := range wr.Combine {
			parent, err := find(wg.Parent)
			if err != nil {
				return err
			}
			g := Group{Parent: parent}
			for _, name := range wg.Children {
				c, err := find(name)
				if err != nil {
					return err
				}
				g.Children = append(g.Children, c)
			}
			rec.Combine = append(rec.Combine, g)
		}
		list = append(list, rec)
	}

	if in.Limit > 0 {
		m.limit = in.Limit
	}
	m.list = list
	m.index = min(max(in.Index, -1), len(list)-1)
	m.trim()
	return nil
}
