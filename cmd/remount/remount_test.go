package remount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/snowxfer/pkg/runner"
)

func TestRemountFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		expDevices []string
	}{
		{
			name:       "SingleDisk",
			args:       []string{"--disk", "3"},
			expDevices: []string{"/dev/disk3s2"},
		},
		{
			name:       "Range",
			args:       []string{"-d", "2", "-m", "4"},
			expDevices: []string{"/dev/disk2s2", "/dev/disk3s2", "/dev/disk4s2"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fake := &runner.Fake{}
			newRunner = func() runner.Runner { return fake }

			cmd := New()
			cmd.SetArgs(test.args)
			require.NoError(t, cmd.Execute())

			var devices []string
			for _, call := range fake.CallsTo("diskutil", "mount", "readOnly") {
				devices = append(devices, call.Args[len(call.Args)-1])
			}
			assert.Equal(t, test.expDevices, devices)
		})
	}
}
