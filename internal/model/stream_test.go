package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDescriptorLabel(t *testing.T) {
	tests := []struct {
		name string
		desc StreamDescriptor
		want string
	}{
		{
			name: "with size",
			desc: StreamDescriptor{Quality: "720p", Size: 22 * 1024 * 1024},
			want: "720p (22.0 MB)",
		},
		{
			name: "fractional size",
			desc: StreamDescriptor{Quality: "1080p", Size: 47395635},
			want: "1080p (45.2 MB)",
		},
		{
			name: "unknown size",
			desc: StreamDescriptor{Quality: "480p"},
			want: "480p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.desc.Label())
		})
	}
}

func TestStageIsActive(t *testing.T) {
	assert.False(t, StageIdle.IsActive())
	assert.False(t, StageAwaitingOption.IsActive())
	assert.False(t, StageAwaitingQuality.IsActive())
	assert.True(t, StageDownloading.IsActive())
	assert.True(t, StageDelivering.IsActive())
}
