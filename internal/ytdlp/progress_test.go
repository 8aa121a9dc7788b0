package ytdlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseProgressLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		summary        string
		line           string
		expectedOk     bool
		expectedUpdate ProgressUpdate
	}{
		{
			summary:        "plain percentage sample",
			line:           `{"token":"abc","percent":" 12.5%","status":"downloading"}`,
			expectedOk:     true,
			expectedUpdate: ProgressUpdate{Token: "abc", Percent: 12.5},
		},
		{
			summary:        "ANSI decorated percentage",
			line:           "{\"token\":\"abc\",\"percent\":\"\x1b[0;94m 45.2%\x1b[0m\",\"status\":\"downloading\"}",
			expectedOk:     true,
			expectedUpdate: ProgressUpdate{Token: "abc", Percent: 45.2},
		},
		{
			summary:        "percentage with surrounding whitespace",
			line:           `{"token":"abc","percent":"  87.3% ","status":"downloading"}`,
			expectedOk:     true,
			expectedUpdate: ProgressUpdate{Token: "abc", Percent: 87.3},
		},
		{
			summary:        "finished sample with full percentage",
			line:           `{"token":"abc","percent":"100.0%","status":"finished"}`,
			expectedOk:     true,
			expectedUpdate: ProgressUpdate{Token: "abc", Percent: 100, Finished: true},
		},
		{
			summary:        "finished sample without usable percentage",
			line:           `{"token":"abc","percent":"  N/A%","status":"finished"}`,
			expectedOk:     true,
			expectedUpdate: ProgressUpdate{Token: "abc", Finished: true},
		},
		{
			summary:    "downloading sample without usable percentage",
			line:       `{"token":"abc","percent":"N/A","status":"downloading"}`,
			expectedOk: false,
		},
		{
			summary:    "destination chatter",
			line:       "[download] Destination: /tmp/dl_abc_xyz.mp4",
			expectedOk: false,
		},
		{
			summary:    "post-processor chatter",
			line:       "[ExtractAudio] Destination: /tmp/dl_abc_xyz.mp3",
			expectedOk: false,
		},
		{
			summary:    "truncated JSON",
			line:       `{"token":"abc","percent":`,
			expectedOk: false,
		},
		{
			summary:    "unrecognised fields rejected",
			line:       `{"token":"abc","percent":"12.5%","status":"downloading","speed":"1.2MiB/s"}`,
			expectedOk: false,
		},
		{
			summary:    "empty line",
			line:       "",
			expectedOk: false,
		},
		{
			summary:    "ANSI noise only",
			line:       "\x1b[0;94m\x1b[0m",
			expectedOk: false,
		},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			t.Parallel()
			update, ok := parseProgressLine(test.line)
			assert.Equal(t, test.expectedOk, ok)
			if test.expectedOk {
				assert.Equal(t, test.expectedUpdate, update)
			}
		})
	}
}

func Test_BuildProgressTemplate_EmbedsToken(t *testing.T) {
	t.Parallel()
	template := buildProgressTemplate("some-token")
	assert.Equal(t, `download:{"token":"some-token","percent":"%(progress._percent_str)s","status":"%(progress.status)s"}`, template)
}
