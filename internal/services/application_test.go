package services

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplicationCreate_WithoutFile(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")

	app := env.application(t, cat.ID, nil)

	assert.Nil(t, app.FilePath)
	assert.Nil(t, app.FileName)
	assert.Equal(t, int64(0), app.DownloadCount)
	assert.Equal(t, models.ApplicationStatusActive, app.Status)
	assert.Equal(t, models.DefaultApplicationVersion, app.Version)
	require.NotNil(t, app.Category)
	assert.Equal(t, "Utilities", app.Category.Name)
	assert.Nil(t, app.IconID)
}

func TestApplicationCreate_RequiredFields(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")

	tests := []struct {
		name  string
		input *ApplicationInput
	}{
		{"missing title", &ApplicationInput{FullName: strPtr("Text Editor"), CategoryID: &cat.ID}},
		{"blank title", &ApplicationInput{Title: strPtr("  "), FullName: strPtr("Text Editor"), CategoryID: &cat.ID}},
		{"missing full name", &ApplicationInput{Title: strPtr("Editor"), CategoryID: &cat.ID}},
		{"missing category", &ApplicationInput{Title: strPtr("Editor"), FullName: strPtr("Text Editor")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.apps.Create(tt.input, nil)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestApplicationCreate_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	missing := uint(999)

	_, err := env.apps.Create(&ApplicationInput{
		Title: strPtr("Editor"), FullName: strPtr("Text Editor"), CategoryID: &missing,
	}, upload("setup.exe", "MZ"))

	assert.True(t, apperr.Is(err, apperr.KindValidation))
	entries, _ := os.ReadDir(env.store.Resolve("uploads/applications"))
	assert.Empty(t, entries, "no file should be stored for a rejected create")
}

func TestApplicationCreate_WithFile(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")

	app := env.application(t, cat.ID, upload("Setup.EXE", "MZ-installer"))

	require.NotNil(t, app.FilePath)
	assert.Equal(t, "Setup.EXE", *app.FileName)
	assert.Equal(t, int64(len("MZ-installer")), *app.FileSize)
	assert.Equal(t, "Windows Executable", *app.FileType)
	assert.Regexp(t, `^uploads/applications/app-\d+\.EXE$`, *app.FilePath)
	assert.True(t, env.store.Exists(*app.FilePath))
}

func TestApplicationCreate_IconPolicy(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	_, err := env.icons.SeedSystemIcons()
	require.NoError(t, err)
	icons, err := env.icons.List()
	require.NoError(t, err)
	existing := strconv.FormatUint(uint64(icons[0].ID), 10)

	tests := []struct {
		name     string
		ref      IconRef
		expected *uint
	}{
		{"absent", IconRef{}, nil},
		{"existing icon", IconRef{Present: true, Value: existing}, &icons[0].ID},
		{"missing icon", IconRef{Present: true, Value: "9999"}, nil},
		{"null sentinel", IconRef{Present: true, Value: "null"}, nil},
		{"not a number", IconRef{Present: true, Value: "abc"}, nil},
		{"negative", IconRef{Present: true, Value: "-3"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := env.apps.Create(&ApplicationInput{
				Title: strPtr("Editor"), FullName: strPtr("Text Editor"), CategoryID: &cat.ID, Icon: tt.ref,
			}, nil)
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, app.IconID)
				assert.Nil(t, app.Icon)
			} else {
				require.NotNil(t, app.IconID)
				assert.Equal(t, *tt.expected, *app.IconID)
				require.NotNil(t, app.Icon)
			}
		})
	}
}

func TestApplicationUpdate_PartialFields(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, nil)

	updated, err := env.apps.Update(app.ID, &ApplicationInput{
		Version: strPtr("2.1.0"),
		Status:  strPtr(models.ApplicationStatusInactive),
		Title:   strPtr(""),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "2.1.0", updated.Version)
	assert.Equal(t, models.ApplicationStatusInactive, updated.Status)
	assert.Equal(t, "Editor", updated.Title, "blank title keeps the stored value")
	assert.Equal(t, "Text Editor", updated.FullName)
}

func TestApplicationUpdate_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, nil)

	_, err := env.apps.Update(app.ID, &ApplicationInput{Status: strPtr("archived")}, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestApplicationUpdate_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.apps.Update(42, &ApplicationInput{}, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestApplicationUpdate_IconThreeWay(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	_, err := env.icons.SeedSystemIcons()
	require.NoError(t, err)
	icons, _ := env.icons.List()
	iconID := strconv.FormatUint(uint64(icons[1].ID), 10)

	app, err := env.apps.Create(&ApplicationInput{
		Title: strPtr("Editor"), FullName: strPtr("Text Editor"), CategoryID: &cat.ID,
		Icon: IconRef{Present: true, Value: iconID},
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, app.IconID)

	// absent keeps the icon
	app, err = env.apps.Update(app.ID, &ApplicationInput{Version: strPtr("1.1.0")}, nil)
	require.NoError(t, err)
	require.NotNil(t, app.IconID)
	assert.Equal(t, icons[1].ID, *app.IconID)

	// a non-existent id clears it
	app, err = env.apps.Update(app.ID, &ApplicationInput{Icon: IconRef{Present: true, Value: "424242"}}, nil)
	require.NoError(t, err)
	assert.Nil(t, app.IconID)

	// set again, then clear with the sentinel
	app, err = env.apps.Update(app.ID, &ApplicationInput{Icon: IconRef{Present: true, Value: iconID}}, nil)
	require.NoError(t, err)
	require.NotNil(t, app.IconID)

	app, err = env.apps.Update(app.ID, &ApplicationInput{Icon: IconRef{Present: true, Value: ""}}, nil)
	require.NoError(t, err)
	assert.Nil(t, app.IconID)
}

func TestApplicationUpdate_ReplacesFile(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, upload("old.zip", "old"))
	oldPath := *app.FilePath

	updated, err := env.apps.Update(app.ID, &ApplicationInput{}, upload("new.dmg", "newer bytes"))
	require.NoError(t, err)

	assert.False(t, env.store.Exists(oldPath), "previous asset should be removed")
	require.NotNil(t, updated.FilePath)
	assert.NotEqual(t, oldPath, *updated.FilePath)
	assert.True(t, env.store.Exists(*updated.FilePath))
	assert.Equal(t, "new.dmg", *updated.FileName)
	assert.Equal(t, "Mac OS Disk Image", *updated.FileType)
	assert.Equal(t, int64(len("newer bytes")), *updated.FileSize)
}

func TestApplicationUpdate_FailedSaveRemovesNewFile(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, nil)

	require.NoError(t, env.db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(errors.New("database is locked"))
	}))

	_, err := env.apps.Update(app.ID, &ApplicationInput{Title: strPtr("Renamed")}, upload("new.zip", "new"))
	assert.True(t, apperr.Is(err, apperr.KindInternal), "got %v", err)

	var files []string
	require.NoError(t, env.store.Walk(storage.ApplicationsDir, func(rel string, _ fs.FileInfo) error {
		files = append(files, rel)
		return nil
	}))
	assert.Empty(t, files, "stored replacement must not be left behind")
}

func TestApplicationDelete(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, upload("tool.deb", "debian"))
	path := *app.FilePath

	require.NoError(t, env.apps.Delete(app.ID))

	assert.False(t, env.store.Exists(path))
	_, err := env.apps.GetByID(app.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = env.apps.Delete(app.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestApplicationDelete_AssetAlreadyGone(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, upload("tool.deb", "debian"))
	require.NoError(t, os.Remove(env.store.Resolve(*app.FilePath)))

	assert.NoError(t, env.apps.Delete(app.ID))
}

func TestIncrementDownloadCount_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, nil)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.apps.IncrementDownloadCount(app.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("IncrementDownloadCount() error = %v", err)
	}

	got, err := env.apps.GetByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.DownloadCount)
}

func TestIncrementDownloadCount_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.apps.IncrementDownloadCount(7)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestApplicationDownload(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, upload("editor.msi", "installer-bytes"))

	for want := int64(1); want <= 2; want++ {
		dl, err := env.apps.Download(app.ID)
		require.NoError(t, err)
		data, err := io.ReadAll(dl.File)
		dl.File.Close()
		require.NoError(t, err)

		assert.Equal(t, "installer-bytes", string(data))
		assert.Equal(t, "editor.msi", dl.FileName)
		assert.Equal(t, int64(len("installer-bytes")), dl.Size)

		info, err := env.apps.FileInfo(app.ID)
		require.NoError(t, err)
		assert.Equal(t, want, info.DownloadCount)
	}
}

func TestApplicationDownload_NoFile(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, nil)

	_, err := env.apps.Download(app.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestApplicationDownload_FileMissing(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	app := env.application(t, cat.ID, upload("editor.msi", "bytes"))
	require.NoError(t, os.Remove(env.store.Resolve(*app.FilePath)))

	_, err := env.apps.Download(app.ID)
	assert.True(t, apperr.Is(err, apperr.KindFileMissing))

	got, err := env.apps.GetByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.DownloadCount, "failed download must not count")
}

func TestApplicationList_Order(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")
	first := env.application(t, cat.ID, nil)
	second := env.application(t, cat.ID, nil)

	apps, err := env.apps.List()
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, first.ID, apps[0].ID)
	assert.Equal(t, second.ID, apps[1].ID)
	assert.NotNil(t, apps[0].Category)
}
