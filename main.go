/*
This is an example of application that will use the
engine package to build and bind GPU resources
*/
package main

import (
	"flag"

	"github.com/spaghettifunk/vulcano/engine"
	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
	"github.com/spaghettifunk/vulcano/engine/trace"
)

func main() {
	configPath := flag.String("config", "vulcano.toml", "path of the configuration file")
	flag.Parse()

	e, err := engine.New(*configPath)
	if err != nil {
		panic(err)
	}
	if err := e.Initialize(); err != nil {
		panic(err)
	}
	defer e.Shutdown()

	sm := e.Systems()

	// A uniform buffer and a sampler, the way a material would bind them.
	buffer, err := sm.CreateBuffer("globals", 256, metadata.BufferUsageUniform)
	if err != nil {
		core.LogFatal(err.Error())
		return
	}
	sampler, err := sm.CreateSampler("linear", false)
	if err != nil {
		core.LogFatal(err.Error())
		return
	}

	layout, err := sm.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label: "material",
		Entries: []metadata.BindGroupLayoutEntry{
			{Binding: 0, Visibility: metadata.ShaderStageVertex | metadata.ShaderStageFragment, BindingType: metadata.BindingTypeUniformBuffer},
			{Binding: 1, Visibility: metadata.ShaderStageFragment, BindingType: metadata.BindingTypeSampler},
		},
	})
	if err != nil {
		core.LogFatal(err.Error())
		return
	}

	pipelineLayout, err := sm.CreatePipelineLayout(&metadata.PipelineLayoutDescriptor{
		Label:            "forward",
		BindGroupLayouts: []metadata.BindGroupLayoutID{layout},
	})
	if err != nil {
		core.LogFatal(err.Error())
		return
	}

	group, err := sm.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  "material-0",
		Layout: layout,
		Entries: []metadata.BindGroupEntry{
			{Binding: 0, Resource: metadata.BindingResource{
				Kind:   metadata.ResourceKindBuffer,
				Buffer: metadata.BufferBinding{Buffer: buffer, Offset: 0, Size: 256},
			}},
			{Binding: 1, Resource: metadata.BindingResource{
				Kind:    metadata.ResourceKindSampler,
				Sampler: sampler,
			}},
		},
	})
	if err != nil {
		core.LogFatal(err.Error())
		return
	}

	core.LogInfo("bind group %d created against pipeline layout %d", group, pipelineLayout)

	// Tear everything down in reverse order; the bind group's references
	// keep the resources alive until it goes.
	sm.Release(trace.ObjectKindBindGroup, group)
	sm.Release(trace.ObjectKindPipelineLayout, pipelineLayout)
	sm.Release(trace.ObjectKindBindGroupLayout, layout)
	sm.Release(trace.ObjectKindSampler, sampler)
	sm.Release(trace.ObjectKindBuffer, buffer)
}
