package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	cat := Default()
	require.NoError(t, cat.Validate())
	require.NotEmpty(t, cat.QuickActions)
	for _, bucket := range knownBuckets {
		require.NotEmpty(t, cat.Greetings[bucket], "bucket %q has no greetings", bucket)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	require.Len(t, cat.QuickActions, len(Default().QuickActions))
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeContentFile(t, `
quick_actions:
  - id: journal
    label: Journal
    prompt: Let's write a journal entry together.
greetings:
  same_day:
    - Back so soon?
`)

	cat, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cat.QuickActions, 1)
	require.Equal(t, "journal", cat.QuickActions[0].ID)
	require.Equal(t, []string{"Back so soon?"}, cat.GreetingPool(BucketSameDay))
	// Buckets the file omits keep the built-in lines.
	require.NotEmpty(t, cat.GreetingPool(BucketFirstVisit))
}

func TestLoadRejectsBadCatalog(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "duplicate quick action id",
			yaml:    "quick_actions:\n  - {id: a, label: A, prompt: p}\n  - {id: a, label: B, prompt: p}\n",
			wantErr: "duplicate id",
		},
		{
			name:    "missing label",
			yaml:    "quick_actions:\n  - {id: a, prompt: p}\n",
			wantErr: "label must not be empty",
		},
		{
			name:    "unknown greeting bucket",
			yaml:    "greetings:\n  midnight:\n    - hi\n",
			wantErr: "unknown bucket",
		},
		{
			name:    "empty greeting bucket",
			yaml:    "greetings:\n  same_day: []\n",
			wantErr: "at least one line",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeContentFile(t, tc.yaml)
			_, err := Load(path)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestGreetingPoolFallsBackForUnknownBucket(t *testing.T) {
	cat := Default()
	require.Equal(t, cat.Greetings[BucketLongAbsence], cat.GreetingPool("not-a-bucket"))
}

func writeContentFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
