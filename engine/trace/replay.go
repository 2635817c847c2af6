package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
)

/**
 * @brief Player is the surface a recorded trace is fed back through.
 * The system manager implements it.
 */
type Player interface {
	CreateBuffer(label string, size uint64, usage metadata.BufferUsage) (metadata.BufferID, error)
	CreateSampler(label string, comparison bool) (metadata.SamplerID, error)
	CreateTextureView(view *metadata.TextureView) (metadata.TextureViewID, error)
	CreateBindGroupLayout(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayoutID, error)
	CreatePipelineLayout(desc *metadata.PipelineLayoutDescriptor) (metadata.PipelineLayoutID, error)
	CreateBindGroup(desc *metadata.BindGroupDescriptor) (metadata.BindGroupID, error)
	Release(kind ObjectKind, id uint32) error
}

// Replay feeds every action in the stream through the player. Recorded
// identities are remapped to the identities the player mints, so a
// trace replays correctly against a fresh device.
func Replay(stream io.Reader, player Player) error {
	ids := map[ObjectKind]map[uint32]uint32{
		ObjectKindBuffer:          {},
		ObjectKindSampler:         {},
		ObjectKindTextureView:     {},
		ObjectKindBindGroupLayout: {},
		ObjectKindPipelineLayout:  {},
		ObjectKindBindGroup:       {},
	}
	resolve := func(kind ObjectKind, recorded uint32) (uint32, error) {
		id, ok := ids[kind][recorded]
		if !ok {
			return 0, fmt.Errorf("trace references unknown object %d of kind %d", recorded, kind)
		}
		return id, nil
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var action Action
		if err := json.Unmarshal(scanner.Bytes(), &action); err != nil {
			return fmt.Errorf("trace line %d is malformed: %w", line, err)
		}

		switch action.Type {
		case ActionSession:
			core.LogInfo("replaying trace session %s", action.Session)

		case ActionCreateBuffer:
			id, err := player.CreateBuffer(action.Label, action.Size, action.Usage)
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			ids[ObjectKindBuffer][action.ID] = id

		case ActionCreateSampler:
			id, err := player.CreateSampler(action.Label, action.Comparison)
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			ids[ObjectKindSampler][action.ID] = id

		case ActionCreateTextureView:
			if action.View == nil {
				return fmt.Errorf("trace line %d: texture view action without a view", line)
			}
			id, err := player.CreateTextureView(action.View)
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			ids[ObjectKindTextureView][action.ID] = id

		case ActionCreateBindGroupLayout:
			desc := &metadata.BindGroupLayoutDescriptor{Label: action.Label, Entries: action.Entries}
			id, err := player.CreateBindGroupLayout(desc)
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			ids[ObjectKindBindGroupLayout][action.ID] = id

		case ActionCreatePipelineLayout:
			layouts := make([]metadata.BindGroupLayoutID, len(action.Layouts))
			for i, recorded := range action.Layouts {
				id, err := resolve(ObjectKindBindGroupLayout, recorded)
				if err != nil {
					return fmt.Errorf("trace line %d: %w", line, err)
				}
				layouts[i] = id
			}
			id, err := player.CreatePipelineLayout(&metadata.PipelineLayoutDescriptor{Label: action.Label, BindGroupLayouts: layouts})
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			ids[ObjectKindPipelineLayout][action.ID] = id

		case ActionCreateBindGroup:
			layout, err := resolve(ObjectKindBindGroupLayout, action.Layout)
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			entries := make([]metadata.BindGroupEntry, len(action.GroupEntries))
			for i, entry := range action.GroupEntries {
				switch entry.Resource.Kind {
				case metadata.ResourceKindBuffer:
					entry.Resource.Buffer.Buffer, err = resolve(ObjectKindBuffer, entry.Resource.Buffer.Buffer)
				case metadata.ResourceKindSampler:
					entry.Resource.Sampler, err = resolve(ObjectKindSampler, entry.Resource.Sampler)
				case metadata.ResourceKindTextureView:
					entry.Resource.TextureView, err = resolve(ObjectKindTextureView, entry.Resource.TextureView)
				}
				if err != nil {
					return fmt.Errorf("trace line %d: %w", line, err)
				}
				entries[i] = entry
			}
			id, err := player.CreateBindGroup(&metadata.BindGroupDescriptor{Label: action.Label, Layout: layout, Entries: entries})
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			ids[ObjectKindBindGroup][action.ID] = id

		case ActionRelease:
			id, err := resolve(action.Kind, action.ID)
			if err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}
			if err := player.Release(action.Kind, id); err != nil {
				return fmt.Errorf("trace line %d: %w", line, err)
			}

		default:
			return fmt.Errorf("trace line %d has unknown action type %q", line, action.Type)
		}
	}
	return scanner.Err()
}
