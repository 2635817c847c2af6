package metadata

import (
	"errors"
	"testing"
)

func TestBindingTypeValuesAreStable(t *testing.T) {
	// The trace format depends on these exact values.
	want := map[BindingType]uint32{
		BindingTypeUniformBuffer:           0,
		BindingTypeStorageBuffer:           1,
		BindingTypeReadonlyStorageBuffer:   2,
		BindingTypeSampler:                 3,
		BindingTypeComparisonSampler:       4,
		BindingTypeSampledTexture:          5,
		BindingTypeReadonlyStorageTexture:  6,
		BindingTypeWriteonlyStorageTexture: 7,
	}
	for bt, v := range want {
		if uint32(bt) != v {
			t.Errorf("%s = %d, want %d", bt, uint32(bt), v)
		}
	}
}

func TestEntryValidateNoVisibility(t *testing.T) {
	// Empty visibility fails regardless of every other field.
	for bt := BindingTypeUniformBuffer; bt <= BindingTypeWriteonlyStorageTexture; bt++ {
		entry := BindGroupLayoutEntry{
			Binding:          0,
			Visibility:       0,
			BindingType:      bt,
			Multisampled:     true,
			HasDynamicOffset: true,
		}
		err := entry.Validate()
		var entryErr *BindGroupLayoutEntryError
		if !errors.As(err, &entryErr) {
			t.Fatalf("%s: Validate() = %v, want entry error", bt, err)
		}
		if entryErr.Violation != EntryViolationNoVisibility {
			t.Errorf("%s: violation = %s, want no visibility", bt, entryErr.Violation)
		}
	}
}

func TestEntryValidateDynamicOffset(t *testing.T) {
	cases := []struct {
		bindingType BindingType
		wantErr     bool
	}{
		{BindingTypeUniformBuffer, false},
		{BindingTypeStorageBuffer, false},
		{BindingTypeReadonlyStorageBuffer, true},
		{BindingTypeSampler, true},
		{BindingTypeComparisonSampler, true},
		{BindingTypeSampledTexture, true},
		{BindingTypeReadonlyStorageTexture, true},
		{BindingTypeWriteonlyStorageTexture, true},
	}
	for _, tc := range cases {
		entry := BindGroupLayoutEntry{
			Visibility:       ShaderStageVertex,
			BindingType:      tc.bindingType,
			HasDynamicOffset: true,
		}
		err := entry.Validate()
		if !tc.wantErr {
			if err != nil {
				t.Errorf("%s: Validate() = %v, want nil", tc.bindingType, err)
			}
			continue
		}
		var entryErr *BindGroupLayoutEntryError
		if !errors.As(err, &entryErr) || entryErr.Violation != EntryViolationUnexpectedHasDynamicOffset {
			t.Errorf("%s: Validate() = %v, want unexpected has_dynamic_offset", tc.bindingType, err)
		}
	}
}

func TestEntryValidateMultisampled(t *testing.T) {
	for bt := BindingTypeUniformBuffer; bt <= BindingTypeWriteonlyStorageTexture; bt++ {
		entry := BindGroupLayoutEntry{
			Visibility:   ShaderStageFragment,
			BindingType:  bt,
			Multisampled: true,
		}
		err := entry.Validate()
		if bt == BindingTypeSampledTexture {
			if err != nil {
				t.Errorf("%s: Validate() = %v, want nil", bt, err)
			}
			continue
		}
		var entryErr *BindGroupLayoutEntryError
		if !errors.As(err, &entryErr) || entryErr.Violation != EntryViolationUnexpectedMultisampled {
			t.Errorf("%s: Validate() = %v, want unexpected multisampled", bt, err)
		}
	}
}

func TestEntryValidateOrderFirstFailureWins(t *testing.T) {
	// No visibility outranks the flag violations.
	entry := BindGroupLayoutEntry{
		Visibility:       0,
		BindingType:      BindingTypeSampler,
		HasDynamicOffset: true,
		Multisampled:     true,
	}
	var entryErr *BindGroupLayoutEntryError
	if err := entry.Validate(); !errors.As(err, &entryErr) || entryErr.Violation != EntryViolationNoVisibility {
		t.Errorf("Validate() = %v, want no visibility", err)
	}

	// Dynamic offset outranks multisampled.
	entry.Visibility = ShaderStageCompute
	if err := entry.Validate(); !errors.As(err, &entryErr) || entryErr.Violation != EntryViolationUnexpectedHasDynamicOffset {
		t.Errorf("Validate() = %v, want unexpected has_dynamic_offset", err)
	}
}

func TestDescriptorCounts(t *testing.T) {
	var counts DescriptorCounts
	counts.Add(BindingTypeUniformBuffer)
	counts.Add(BindingTypeStorageBuffer)
	counts.Add(BindingTypeReadonlyStorageBuffer)
	counts.Add(BindingTypeSampler)
	counts.Add(BindingTypeComparisonSampler)
	counts.Add(BindingTypeSampledTexture)
	counts.Add(BindingTypeWriteonlyStorageTexture)

	if counts[DescriptorClassUniformBuffer] != 1 {
		t.Errorf("uniform buffers = %d, want 1", counts[DescriptorClassUniformBuffer])
	}
	if counts[DescriptorClassStorageBuffer] != 2 {
		t.Errorf("storage buffers = %d, want 2", counts[DescriptorClassStorageBuffer])
	}
	if counts[DescriptorClassSampler] != 2 {
		t.Errorf("samplers = %d, want 2", counts[DescriptorClassSampler])
	}
	if counts[DescriptorClassSampledTexture] != 1 {
		t.Errorf("sampled textures = %d, want 1", counts[DescriptorClassSampledTexture])
	}
	if counts[DescriptorClassStorageTexture] != 1 {
		t.Errorf("storage textures = %d, want 1", counts[DescriptorClassStorageTexture])
	}
	if counts.Total() != 7 {
		t.Errorf("Total = %d, want 7", counts.Total())
	}
}
