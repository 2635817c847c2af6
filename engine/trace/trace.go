package trace

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

// Object kinds as they appear in release actions. Values are part of
// the trace format.
type ObjectKind uint32

const (
	ObjectKindBuffer          ObjectKind = 0
	ObjectKindSampler         ObjectKind = 1
	ObjectKindTextureView     ObjectKind = 2
	ObjectKindBindGroupLayout ObjectKind = 3
	ObjectKindPipelineLayout  ObjectKind = 4
	ObjectKindBindGroup       ObjectKind = 5
)

type ActionType string

const (
	ActionSession               ActionType = "session"
	ActionCreateBuffer          ActionType = "create_buffer"
	ActionCreateSampler         ActionType = "create_sampler"
	ActionCreateTextureView     ActionType = "create_texture_view"
	ActionCreateBindGroupLayout ActionType = "create_bind_group_layout"
	ActionCreatePipelineLayout  ActionType = "create_pipeline_layout"
	ActionCreateBindGroup       ActionType = "create_bind_group"
	ActionRelease               ActionType = "release"
)

/**
 * @brief One recorded API call. Enum-typed fields serialize with their
 * stable numeric identities so a trace written today replays against
 * future versions.
 */
type Action struct {
	Type  ActionType `json:"type"`
	ID    uint32     `json:"id,omitempty"`
	Label string     `json:"label,omitempty"`

	/** @brief Session header only. */
	Session string `json:"session,omitempty"`

	/** @brief Buffer creation. */
	Size  uint64               `json:"size,omitempty"`
	Usage metadata.BufferUsage `json:"usage,omitempty"`

	/** @brief Sampler creation. */
	Comparison bool `json:"comparison,omitempty"`

	/** @brief Texture view creation. */
	View *metadata.TextureView `json:"view,omitempty"`

	/** @brief Bind group layout creation. */
	Entries []metadata.BindGroupLayoutEntry `json:"entries,omitempty"`

	/** @brief Pipeline layout creation. */
	Layouts []metadata.BindGroupLayoutID `json:"layouts,omitempty"`

	/** @brief Bind group creation. */
	Layout       metadata.BindGroupLayoutID `json:"layout,omitempty"`
	GroupEntries []metadata.BindGroupEntry  `json:"group_entries,omitempty"`

	/** @brief Release only. */
	Kind ObjectKind `json:"kind,omitempty"`
}

/**
 * @brief Recorder writes one JSON action per line. Safe for concurrent
 * use; creation order within the file is the replay order.
 */
type Recorder struct {
	mutex   sync.Mutex
	writer  io.Writer
	closer  io.Closer
	encoder *json.Encoder
	session uuid.UUID
}

// NewRecorder opens a recorder writing to the given path, or stderr
// when the path is empty, and writes the session header.
func NewRecorder(path string) (*Recorder, error) {
	var w io.Writer = os.Stderr
	var c io.Closer
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			core.LogError("unable to open trace file `%s`: %s", path, err.Error())
			return nil, err
		}
		w = f
		c = f
	}

	r := &Recorder{
		writer:  w,
		closer:  c,
		encoder: json.NewEncoder(w),
		session: uuid.New(),
	}
	if err := r.record(&Action{Type: ActionSession, Session: r.session.String()}); err != nil {
		return nil, err
	}
	core.LogInfo("trace session %s started", r.session.String())
	return r, nil
}

func (r *Recorder) record(a *Action) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.encoder.Encode(a)
}

func (r *Recorder) BufferCreated(id metadata.BufferID, label string, size uint64, usage metadata.BufferUsage) {
	r.must(&Action{Type: ActionCreateBuffer, ID: id, Label: label, Size: size, Usage: usage})
}

func (r *Recorder) SamplerCreated(id metadata.SamplerID, label string, comparison bool) {
	r.must(&Action{Type: ActionCreateSampler, ID: id, Label: label, Comparison: comparison})
}

func (r *Recorder) TextureViewCreated(id metadata.TextureViewID, view *metadata.TextureView) {
	recorded := *view
	recorded.InternalData = nil
	r.must(&Action{Type: ActionCreateTextureView, ID: id, Label: view.Label, View: &recorded})
}

func (r *Recorder) BindGroupLayoutCreated(id metadata.BindGroupLayoutID, desc *metadata.BindGroupLayoutDescriptor) {
	r.must(&Action{Type: ActionCreateBindGroupLayout, ID: id, Label: desc.Label, Entries: desc.Entries})
}

func (r *Recorder) PipelineLayoutCreated(id metadata.PipelineLayoutID, desc *metadata.PipelineLayoutDescriptor) {
	r.must(&Action{Type: ActionCreatePipelineLayout, ID: id, Label: desc.Label, Layouts: desc.BindGroupLayouts})
}

func (r *Recorder) BindGroupCreated(id metadata.BindGroupID, desc *metadata.BindGroupDescriptor) {
	r.must(&Action{Type: ActionCreateBindGroup, ID: id, Label: desc.Label, Layout: desc.Layout, GroupEntries: desc.Entries})
}

func (r *Recorder) Released(kind ObjectKind, id uint32) {
	r.must(&Action{Type: ActionRelease, Kind: kind, ID: id})
}

func (r *Recorder) must(a *Action) {
	if err := r.record(a); err != nil {
		core.LogWarn("trace write failed, action dropped: %s", err.Error())
	}
}

func (r *Recorder) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
