package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"plankton/pkg/models"
	"plankton/pkg/objectstore"
)

const (
	testHash  = "a1b2c3d4e5f67890123456789abcdef0123456789abcdef0123456789abcdef0"
	otherHash = "b1b2c3d4e5f67890123456789abcdef0123456789abcdef0123456789abcdef0"
	domain    = "plankton"
)

// StoreTestSuite tests the SQLite object store.
type StoreTestSuite struct {
	suite.Suite
	tempDir string
	store   *Store
	conn    *Backend
}

// SetupTest opens a fresh database for each test.
func (s *StoreTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "objectstore-test-*")
	s.Require().NoError(err)

	s.store, err = NewStore(filepath.Join(s.tempDir, "store.db"))
	s.Require().NoError(err)
	s.conn = s.store.Connect()
}

// TearDownTest closes the database and removes it.
func (s *StoreTestSuite) TearDownTest() {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
	os.RemoveAll(s.tempDir)
}

func (s *StoreTestSuite) put(account, container, name string) string {
	id, err := s.conn.PutObject(account, account, container, name, testHash, 1024)
	s.Require().NoError(err)
	return id
}

func (s *StoreTestSuite) TestNewStoreInvalidPath() {
	_, err := NewStore("/nonexistent/path/to/store.db")
	s.ErrorIs(err, objectstore.ErrDatabase)
}

func (s *StoreTestSuite) TestOpenCreatesDirectory() {
	store, err := Open(filepath.Join(s.tempDir, "nested", "dir", "store.db"))
	s.Require().NoError(err)
	s.NoError(store.Close())
	s.DirExists(filepath.Join(s.tempDir, "nested", "dir"))
}

func (s *StoreTestSuite) TestPutObjectInvalidHash() {
	_, err := s.conn.PutObject("acct1", "acct1", "c1", "obj1", "short", 10)
	s.ErrorIs(err, objectstore.ErrInvalidHash)

	_, err = s.conn.PutObject("acct1", "acct1", "c1", "obj1", "zz"+testHash[2:], 10)
	s.ErrorIs(err, objectstore.ErrInvalidHash)
}

func (s *StoreTestSuite) TestPutObjectForeignAccount() {
	_, err := s.conn.PutObject("acct2", "acct1", "c1", "obj1", testHash, 10)
	s.ErrorIs(err, objectstore.ErrNotAllowed)
}

func (s *StoreTestSuite) TestGetUUID() {
	id := s.put("acct1", "c1", "dir/obj1")

	account, container, name, err := s.conn.GetUUID("acct1", id)
	s.Require().NoError(err)
	s.Equal("acct1", account)
	s.Equal("c1", container)
	s.Equal("dir/obj1", name)

	_, _, _, err = s.conn.GetUUID("acct2", id)
	s.ErrorIs(err, objectstore.ErrNotAllowed)

	_, _, _, err = s.conn.GetUUID("acct1", "missing")
	s.ErrorIs(err, objectstore.ErrItemNotExists)
}

func (s *StoreTestSuite) TestOverwriteKeepsIdentityAndMeta() {
	id := s.put("acct1", "c1", "obj1")
	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{"k": "v"}, false))

	again, err := s.conn.PutObject("acct1", "acct1", "c1", "obj1", otherHash, 2048)
	s.Require().NoError(err)
	s.Equal(id, again)

	meta, err := s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.Require().NoError(err)
	s.Equal(otherHash, meta.Hash)
	s.Equal(int64(2048), meta.Bytes)
	s.Equal("v", meta.Meta["k"])
}

func (s *StoreTestSuite) TestUpdateObjectMetaMergeAndReplace() {
	s.put("acct1", "c1", "obj1")

	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{"a": "1", "b": "2"}, false))
	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{"b": "3"}, false))
	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", "other", map[string]string{"x": "y"}, false))

	meta, err := s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.Require().NoError(err)
	s.Equal(map[string]string{"a": "1", "b": "3"}, meta.Meta)

	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{}, true))

	meta, err = s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.Require().NoError(err)
	s.Empty(meta.Meta)

	other, err := s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", "other", objectstore.CurrentVersion)
	s.Require().NoError(err)
	s.Equal(map[string]string{"x": "y"}, other.Meta)
}

func (s *StoreTestSuite) TestUpdateObjectMetaMissing() {
	err := s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "nope", domain, map[string]string{"a": "1"}, false)
	s.ErrorIs(err, objectstore.ErrItemNotExists)
}

func (s *StoreTestSuite) TestDeleteKeepsHistory() {
	id := s.put("acct1", "c1", "obj1")
	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{"name": "x"}, false))
	s.Require().NoError(s.conn.DeleteObject("acct1", "acct1", "c1", "obj1"))

	_, err := s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.ErrorIs(err, objectstore.ErrItemNotExists)

	versions, err := s.conn.ListVersions("acct1", "acct1", "c1", "obj1")
	s.Require().NoError(err)
	s.Len(versions, 2)

	last := versions[len(versions)-1]
	meta, err := s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, last.Version)
	s.Require().NoError(err)
	s.Equal("x", meta.Meta["name"])
	s.Equal(id, meta.UUID)

	account, _, _, err := s.conn.GetUUID("acct1", id)
	s.Require().NoError(err)
	s.Equal("acct1", account)

	_, err = s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, 9999)
	s.ErrorIs(err, objectstore.ErrVersionNotExists)
}

func (s *StoreTestSuite) TestPermissions() {
	s.put("acct1", "c1", "obj1")

	path, perms, err := s.conn.GetObjectPermissions("acct1", "acct1", "c1", "obj1")
	s.Require().NoError(err)
	s.Empty(path)
	s.True(perms.IsEmpty())

	err = s.conn.UpdateObjectPermissions("acct1", "acct1", "c1", "obj1", models.Permissions{Read: []string{"acct2", "acct3", "acct2"}})
	s.Require().NoError(err)

	path, perms, err = s.conn.GetObjectPermissions("acct2", "acct1", "c1", "obj1")
	s.Require().NoError(err)
	s.Equal("acct1/c1/obj1", path)
	s.Equal([]string{"acct2", "acct3"}, perms.Read)

	_, err = s.conn.GetObjectMeta("acct3", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.NoError(err)
	_, err = s.conn.GetObjectMeta("acct4", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.ErrorIs(err, objectstore.ErrNotAllowed)

	err = s.conn.UpdateObjectPermissions("acct2", "acct1", "c1", "obj1", models.Permissions{})
	s.ErrorIs(err, objectstore.ErrNotAllowed)

	err = s.conn.UpdateObjectMeta("acct2", "acct1", "c1", "obj1", domain, map[string]string{"a": "b"}, false)
	s.ErrorIs(err, objectstore.ErrNotAllowed)
}

func (s *StoreTestSuite) TestGetDomainObjects() {
	s.put("acct1", "c1", "private")
	s.put("acct1", "c1", "shared")
	s.put("acct1", "c1", "public")
	s.put("acct1", "c1", "plain")
	for _, name := range []string{"private", "shared", "public"} {
		s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", name, domain, map[string]string{"name": name}, false))
	}
	s.Require().NoError(s.conn.UpdateObjectPermissions("acct1", "acct1", "c1", "shared", models.Permissions{Read: []string{"acct2"}}))
	s.Require().NoError(s.conn.UpdateObjectPermissions("acct1", "acct1", "c1", "public", models.Permissions{Read: []string{"*"}}))

	paths := func(user string) []string {
		objects, err := s.conn.GetDomainObjects(domain, user)
		s.Require().NoError(err)
		var out []string
		for _, obj := range objects {
			out = append(out, obj.Path)
		}
		return out
	}

	s.Equal([]string{"acct1/c1/private", "acct1/c1/public", "acct1/c1/shared"}, paths("acct1"))
	s.Equal([]string{"acct1/c1/public", "acct1/c1/shared"}, paths("acct2"))
	s.Equal([]string{"acct1/c1/public"}, paths(""))
}

func (s *StoreTestSuite) TestTransactionRollback() {
	s.put("acct1", "c1", "obj1")

	s.Require().NoError(s.conn.PreExec())
	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{"a": "1"}, false))
	s.Require().NoError(s.conn.PostExec(false))

	meta, err := s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.Require().NoError(err)
	s.Empty(meta.Meta)

	s.Require().NoError(s.conn.PreExec())
	s.Require().NoError(s.conn.UpdateObjectMeta("acct1", "acct1", "c1", "obj1", domain, map[string]string{"a": "1"}, false))
	s.Require().NoError(s.conn.PostExec(true))

	meta, err = s.conn.GetObjectMeta("acct1", "acct1", "c1", "obj1", domain, objectstore.CurrentVersion)
	s.Require().NoError(err)
	s.Equal("1", meta.Meta["a"])
}

func (s *StoreTestSuite) TestTransactionMisuse() {
	s.ErrorIs(s.conn.PostExec(true), objectstore.ErrTransaction)

	s.Require().NoError(s.conn.PreExec())
	s.ErrorIs(s.conn.PreExec(), objectstore.ErrTransaction)
	s.NoError(s.conn.Reset())
	s.ErrorIs(s.conn.PostExec(false), objectstore.ErrTransaction)
}

func (s *StoreTestSuite) TestPoolReuse() {
	pool := s.store.Pool(1)
	defer pool.Close()

	first, err := pool.Get()
	s.Require().NoError(err)
	s.Require().NoError(first.PreExec())
	s.Require().NoError(first.Close())

	second, err := pool.Get()
	s.Require().NoError(err)
	// The dangling transaction was rolled back on release.
	s.NoError(second.PreExec())
	s.NoError(second.PostExec(true))
	s.NoError(second.Close())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
