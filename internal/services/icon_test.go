package services

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSystemIconCatalog(t *testing.T) {
	assert.Len(t, systemIcons, 45)

	seen := map[string]bool{}
	for _, icon := range systemIcons {
		assert.False(t, seen[icon.Key], "duplicate key %s", icon.Key)
		seen[icon.Key] = true
	}
}

func TestSeedSystemIcons_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.icons.SeedSystemIcons()
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Created: 45, Existing: 0, Total: 45}, *first)

	second, err := env.icons.SeedSystemIcons()
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Created: 0, Existing: 45, Total: 45}, *second)

	var count int64
	env.db.Model(&models.Icon{}).Where("type = ?", models.IconTypeSystem).Count(&count)
	assert.Equal(t, int64(45), count)
}

func TestSeedSystemIcons_KeepsExisting(t *testing.T) {
	env := newTestEnv(t)
	renamed := &models.Icon{Name: "My Home", IconKey: "Home", Category: "Mine", Type: models.IconTypeSystem}
	require.NoError(t, env.db.Create(renamed).Error)

	report, err := env.icons.SeedSystemIcons()
	require.NoError(t, err)
	assert.Equal(t, 44, report.Created)
	assert.Equal(t, 1, report.Existing)

	got, err := env.icons.GetByID(renamed.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Home", got.Name)
}

func TestIconSearch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.icons.SeedSystemIcons()
	require.NoError(t, err)

	byCategory, err := env.icons.Search("SECURITY")
	require.NoError(t, err)
	require.Len(t, byCategory, 3)
	assert.Equal(t, "Key", byCategory[0].Name)
	assert.Equal(t, "Lock", byCategory[1].Name)
	assert.Equal(t, "Shield", byCategory[2].Name)

	byKey, err := env.icons.Search("trash2")
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, "Trash", byKey[0].Name)

	none, err := env.icons.Search("zzz-no-match")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	all, err := env.icons.Search("  ")
	require.NoError(t, err)
	assert.Len(t, all, 45)
}

func TestCreateCustomIcon_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x42}, 1000)...)

	icon, err := env.icons.CreateCustomIcon(&FileUpload{
		FileName:    "logo.png",
		ContentType: "image/png",
		Size:        int64(len(content)),
		Reader:      bytes.NewReader(content),
	}, "", "")
	require.NoError(t, err)

	assert.Equal(t, "logo", icon.Name)
	assert.Equal(t, "Custom", icon.Category)
	assert.Equal(t, models.IconTypeCustom, icon.Type)
	require.NotNil(t, icon.FileName)
	assert.Equal(t, *icon.FileName, icon.IconKey)
	assert.True(t, strings.HasPrefix(icon.IconKey, storage.IconPrefix))

	found, err := env.icons.GetByID(icon.ID)
	require.NoError(t, err)
	require.NotNil(t, found.FilePath)
	info, err := os.Stat(env.store.Resolve(*found.FilePath))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size())
	assert.Equal(t, int64(len(content)), *found.FileSize)
}

func TestCreateCustomIcon_NameAndCategory(t *testing.T) {
	env := newTestEnv(t)

	icon, err := env.icons.CreateCustomIcon(&FileUpload{
		FileName:    "brand.svg",
		ContentType: "image/svg+xml",
		Reader:      strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg"/>`),
	}, "Brand", "Logos")
	require.NoError(t, err)
	assert.Equal(t, "Brand", icon.Name)
	assert.Equal(t, "Logos", icon.Category)
}

func TestCreateCustomIcon_SniffsGenericType(t *testing.T) {
	env := newTestEnv(t)

	icon, err := env.icons.CreateCustomIcon(&FileUpload{
		FileName:    "upload.bin",
		ContentType: "application/octet-stream",
		Reader:      bytes.NewReader(pngHeader),
	}, "Sniffed", "")
	require.NoError(t, err)
	assert.Equal(t, int64(len(pngHeader)), *icon.FileSize, "sniffed bytes must still be stored")

	_, err = env.icons.CreateCustomIcon(&FileUpload{
		FileName: "notes.txt",
		Reader:   strings.NewReader("plain text, not an image"),
	}, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateCustomIcon_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		file *FileUpload
	}{
		{"no file", nil},
		{"wrong type", &FileUpload{FileName: "a.gif", ContentType: "image/gif", Reader: strings.NewReader("GIF89a")}},
		{"declared too large", &FileUpload{FileName: "a.png", ContentType: "image/png", Size: DefaultMaxIconSize + 1, Reader: strings.NewReader("x")}},
		{"actual too large", &FileUpload{FileName: "a.png", ContentType: "image/png", Reader: bytes.NewReader(make([]byte, DefaultMaxIconSize+10))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.icons.CreateCustomIcon(tt.file, "", "")
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	entries, _ := os.ReadDir(env.store.Resolve(storage.IconsDir))
	assert.Empty(t, entries, "rejected uploads must not leave files")
}

func TestIconDelete_Custom(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Utilities")

	icon, err := env.icons.CreateCustomIcon(&FileUpload{
		FileName: "logo.png", ContentType: "image/png", Reader: bytes.NewReader(pngHeader),
	}, "", "")
	require.NoError(t, err)

	iconRef := IconRef{Present: true, Value: uintString(icon.ID)}
	app, err := env.apps.Create(&ApplicationInput{
		Title: strPtr("Editor"), FullName: strPtr("Text Editor"), CategoryID: &cat.ID, Icon: iconRef,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, app.IconID)

	require.NoError(t, env.icons.Delete(icon.ID))

	assert.False(t, env.store.Exists(*icon.FilePath))
	_, err = env.icons.GetByID(icon.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	app, err = env.apps.GetByID(app.ID)
	require.NoError(t, err)
	assert.Nil(t, app.IconID, "applications should no longer reference the deleted icon")
}

func TestIconDelete_NotFound(t *testing.T) {
	env := newTestEnv(t)
	assert.True(t, apperr.Is(env.icons.Delete(99), apperr.KindNotFound))
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
