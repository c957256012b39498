package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"plankton/pkg/config"
	"plankton/pkg/errs"
	"plankton/pkg/image"
	"plankton/pkg/models"
)

const document = `[
  {
    "id": "11111111-1111-1111-1111-111111111111",
    "location": "pithos://acct1/images/debian",
    "owner": "acct1",
    "name": "debian",
    "disk_format": "diskdump",
    "container_format": "bare",
    "status": "available",
    "size": 2048,
    "store": "pithos",
    "created_at": "2024-01-02 03:04:05",
    "updated_at": "2024-01-02 03:04:05",
    "deleted_at": "",
    "is_public": true,
    "properties": {"osfamily": "linux"}
  },
  {
    "id": "22222222-2222-2222-2222-222222222222",
    "location": "pithos://acct2/images/windows",
    "owner": "acct2",
    "name": "windows",
    "disk_format": "ntfsdump",
    "container_format": "bare",
    "status": "available",
    "size": 4096,
    "store": "pithos",
    "created_at": "2024-03-01 00:00:00",
    "updated_at": "2024-03-01 00:00:00",
    "deleted_at": "",
    "is_public": false,
    "properties": {}
  }
]`

type CatalogTestSuite struct {
	suite.Suite
	tempDir string
	catalog *Catalog
}

func (s *CatalogTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	path := filepath.Join(s.tempDir, "images.json")
	s.Require().NoError(os.WriteFile(path, []byte(document), 0o600))

	var err error
	s.catalog, err = Load(path)
	s.Require().NoError(err)
}

func (s *CatalogTestSuite) TestListImagesVerbatim() {
	images, err := s.catalog.ListImages(models.ListFilters{}, models.ListParams{})
	s.Require().NoError(err)
	s.Require().Len(images, 2)
	s.Equal("debian", images[0].Name)
	s.Equal("windows", images[1].Name)
	s.Equal("2024-01-02 03:04:05", images[0].CreatedAt.String())
	s.Empty(images[0].DeletedAt.String())
	s.Equal(map[string]string{"osfamily": "linux"}, images[0].Properties)
}

func (s *CatalogTestSuite) TestListImagesSortedAndFiltered() {
	images, err := s.catalog.ListImages(models.ListFilters{}, models.ListParams{SortKey: "created_at"})
	s.Require().NoError(err)
	s.Require().Len(images, 2)
	s.Equal("windows", images[0].Name)

	images, err = s.catalog.ListImages(models.ListFilters{SizeMin: 3000}, models.ListParams{})
	s.Require().NoError(err)
	s.Require().Len(images, 1)
	s.Equal("windows", images[0].Name)

	_, err = s.catalog.ListImages(models.ListFilters{}, models.ListParams{SortKey: "bogus"})
	s.ErrorIs(err, errs.ErrInvalidValue)
}

func (s *CatalogTestSuite) TestSharedAndPublic() {
	shared, err := s.catalog.ListSharedImages("acct2", models.ListFilters{}, models.ListParams{})
	s.Require().NoError(err)
	s.Require().Len(shared, 1)
	s.Equal("windows", shared[0].Name)

	public, err := s.catalog.ListPublicImages(models.ListFilters{}, models.ListParams{})
	s.Require().NoError(err)
	s.Require().Len(public, 1)
	s.Equal("debian", public[0].Name)
}

func (s *CatalogTestSuite) TestGetImage() {
	img, err := s.catalog.GetImage("22222222-2222-2222-2222-222222222222")
	s.Require().NoError(err)
	s.Equal("windows", img.Name)

	img.Name = "changed"
	again, err := s.catalog.GetImage("22222222-2222-2222-2222-222222222222")
	s.Require().NoError(err)
	s.Equal("windows", again.Name)

	_, err = s.catalog.GetImage("missing")
	s.ErrorIs(err, errs.ErrImageNotFound)
}

func (s *CatalogTestSuite) TestMutationsNotSupported() {
	id := "11111111-1111-1111-1111-111111111111"

	_, err := s.catalog.Register("x", "pithos://a/b/c", models.ImageParams{})
	s.ErrorIs(err, errs.ErrNotSupported)
	_, err = s.catalog.UpdateMetadata(id, models.ImageParams{})
	s.ErrorIs(err, errs.ErrNotSupported)
	s.ErrorIs(s.catalog.Unregister(id), errs.ErrNotSupported)
	s.ErrorIs(s.catalog.AddUser(id, "acct2"), errs.ErrNotSupported)
	s.ErrorIs(s.catalog.RemoveUser(id, "acct2"), errs.ErrNotSupported)
	s.ErrorIs(s.catalog.ReplaceUsers(id, nil), errs.ErrNotSupported)
	_, err = s.catalog.ListUsers(id)
	s.ErrorIs(err, errs.ErrNotSupported)
	s.NoError(s.catalog.Close())
}

func (s *CatalogTestSuite) TestRegistry() {
	cfg := config.Default()
	cfg.Backend = config.BackendCatalog
	cfg.Catalog.File = filepath.Join(s.tempDir, "images.json")

	provider, err := image.Open(cfg)
	s.Require().NoError(err)
	defer provider.Close()

	backend, err := provider.Open("anyone")
	s.Require().NoError(err)
	images, err := backend.ListImages(models.ListFilters{}, models.ListParams{})
	s.Require().NoError(err)
	s.Len(images, 2)
}

func (s *CatalogTestSuite) TestLoadErrors() {
	_, err := Load(filepath.Join(s.tempDir, "absent.json"))
	s.Error(err)

	path := filepath.Join(s.tempDir, "broken.json")
	s.Require().NoError(os.WriteFile(path, []byte("{"), 0o600))
	_, err = Load(path)
	s.Error(err)
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}
