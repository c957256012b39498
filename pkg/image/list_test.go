package image

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plankton/pkg/errs"
	"plankton/pkg/models"
)

func sample() []models.Image {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Image{
		{ID: "b", Name: "debian", Size: 300, DiskFormat: "raw", CreatedAt: models.NewTimestamp(base.Add(time.Hour))},
		{ID: "a", Name: "arch", Size: 100, DiskFormat: "qcow2", CreatedAt: models.NewTimestamp(base)},
		{ID: "c", Name: "centos", Size: 200, DiskFormat: "raw", CreatedAt: models.NewTimestamp(base.Add(2 * time.Hour))},
	}
}

func TestSortImagesDefaultsToNewestFirst(t *testing.T) {
	images := sample()
	require.NoError(t, SortImages(images, models.ListParams{}))
	assert.Equal(t, []string{"centos", "debian", "arch"}, names(images))
}

func TestSortImagesByKey(t *testing.T) {
	testCases := []struct {
		params models.ListParams
		want   []string
	}{
		{models.ListParams{SortKey: "name", SortDir: SortAsc}, []string{"arch", "centos", "debian"}},
		{models.ListParams{SortKey: "name"}, []string{"debian", "centos", "arch"}},
		{models.ListParams{SortKey: "size", SortDir: SortAsc}, []string{"arch", "centos", "debian"}},
		{models.ListParams{SortKey: "id", SortDir: SortDesc}, []string{"centos", "debian", "arch"}},
		{models.ListParams{SortKey: "created_at", SortDir: SortAsc}, []string{"arch", "debian", "centos"}},
	}

	for _, tc := range testCases {
		images := sample()
		require.NoError(t, SortImages(images, tc.params))
		assert.Equal(t, tc.want, names(images), "%+v", tc.params)
	}
}

func TestSortImagesStable(t *testing.T) {
	images := sample()
	require.NoError(t, SortImages(images, models.ListParams{SortKey: "disk_format", SortDir: SortAsc}))
	assert.Equal(t, []string{"arch", "debian", "centos"}, names(images))
}

func TestSortImagesRejectsUnknown(t *testing.T) {
	assert.ErrorIs(t, SortImages(sample(), models.ListParams{SortKey: "colour"}), errs.ErrInvalidValue)
	assert.ErrorIs(t, SortImages(sample(), models.ListParams{SortDir: "up"}), errs.ErrInvalidValue)
}

func TestFilterImages(t *testing.T) {
	testCases := []struct {
		filters models.ListFilters
		want    []string
	}{
		{models.ListFilters{}, []string{"debian", "arch", "centos"}},
		{models.ListFilters{Name: "arch"}, []string{"arch"}},
		{models.ListFilters{DiskFormat: "raw"}, []string{"debian", "centos"}},
		{models.ListFilters{SizeMin: 150}, []string{"debian", "centos"}},
		{models.ListFilters{SizeMax: 250}, []string{"arch", "centos"}},
		{models.ListFilters{SizeMin: 150, SizeMax: 250}, []string{"centos"}},
		{models.ListFilters{Status: "queued"}, []string{}},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, names(FilterImages(sample(), tc.filters, nil)), "%+v", tc.filters)
	}
}

func TestFilterImagesKeep(t *testing.T) {
	got := FilterImages(sample(), models.ListFilters{}, func(img *models.Image) bool {
		return img.Size > 100
	})
	assert.Equal(t, []string{"debian", "centos"}, names(got))
}
