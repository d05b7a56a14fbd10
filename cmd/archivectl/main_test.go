package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-state-secret-for-development-32-chars-long"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MAILGALLERY_STATE_SECRET", testSecret)
	t.Setenv("MAILGALLERY_DATABASE_TYPE", "")
	t.Setenv("MAILGALLERY_DATABASE_DSN", "")
	t.Setenv("MAILGALLERY_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateUser(t *testing.T) {
	t.Run("内存存储创建用户", func(t *testing.T) {
		out, err := execute(t, "create-user", "--email", "Alice@Example.com", "--password", "password123")
		require.NoError(t, err)
		assert.Contains(t, out, "created user alice@example.com")
	})

	t.Run("密码过短", func(t *testing.T) {
		_, err := execute(t, "create-user", "--email", "alice@example.com", "--password", "short")
		assert.Error(t, err)
	})

	t.Run("缺少必填参数", func(t *testing.T) {
		_, err := execute(t, "create-user", "--email", "alice@example.com")
		assert.Error(t, err)
	})
}

func TestMigrateRequiresDatabase(t *testing.T) {
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}

func TestThumbnailsEmptyArchive(t *testing.T) {
	out, err := execute(t, "thumbnails", "--batch", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 0 emails: 0 generated, 0 failed")
}

func TestImportBrands(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		_, err := execute(t, "import-brands", filepath.Join(t.TempDir(), "missing.tsv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open brand list")
	})

	t.Run("缺少文件参数", func(t *testing.T) {
		_, err := execute(t, "import-brands")
		assert.Error(t, err)
	})
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "archivectl version "+version+"\n", out)
}
