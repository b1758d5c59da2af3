package verifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/service/installer"
)

// TestVerify reports missing, modified and malformed entries.
func TestVerify(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))

	sum := func(s string) string {
		b, err := installer.Checksum([]byte(s))
		require.NoError(t, err)

		return installer.EncodeChecksum(b)
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "ok.py"), []byte("ok"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "changed.py"), []byte("tampered"), 0o644))

	r := install.NewReceipt("pkg", "1.0", root)
	r.Files["pkg/ok.py"] = sum("ok")
	r.Files["pkg/changed.py"] = sum("original")
	r.Files["pkg/gone.py"] = sum("gone")
	r.Files["pkg/bad.py"] = "%%%"

	problems, err := Verify(context.Background(), root, r)
	require.NoError(t, err)
	require.Equal(t, []Problem{
		{Path: "pkg/bad.py", Kind: ProblemInvalid},
		{Path: "pkg/changed.py", Kind: ProblemModified},
		{Path: "pkg/gone.py", Kind: ProblemMissing},
	}, problems)
}

// TestVerify_Clean returns no problems for an untouched install.
func TestVerify_Clean(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.cfg"), []byte("a"), 0o644))

	b, err := installer.Checksum([]byte("a"))
	require.NoError(t, err)

	r := install.NewReceipt("pkg", "", root)
	r.Files["a.cfg"] = installer.EncodeChecksum(b)

	problems, err := Verify(context.Background(), root, r)
	require.NoError(t, err)
	require.Empty(t, problems)
}
