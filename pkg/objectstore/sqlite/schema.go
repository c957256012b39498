package sqlite

// Schema contains the SQL statements to create the object store schema.
const Schema = `
-- Versions table: every state an object path has been in
CREATE TABLE IF NOT EXISTS versions (
    serial   INTEGER PRIMARY KEY AUTOINCREMENT,
    path     TEXT NOT NULL,
    account  TEXT NOT NULL,
    uuid     TEXT NOT NULL,
    hash     TEXT NOT NULL,
    size     INTEGER NOT NULL,
    mtime    DATETIME NOT NULL,
    cluster  INTEGER NOT NULL DEFAULT 0
);

-- Attributes table: per-version metadata grouped by domain
CREATE TABLE IF NOT EXISTS attributes (
    serial  INTEGER NOT NULL,
    domain  TEXT NOT NULL,
    key     TEXT NOT NULL,
    value   TEXT NOT NULL,
    PRIMARY KEY (serial, domain, key),
    FOREIGN KEY (serial) REFERENCES versions(serial) ON DELETE CASCADE
);

-- Permissions table: subjects granted an action on a path
CREATE TABLE IF NOT EXISTS permissions (
    path     TEXT NOT NULL,
    action   TEXT NOT NULL,
    subject  TEXT NOT NULL,
    PRIMARY KEY (path, action, subject)
);

-- Indexes for performance
CREATE INDEX IF NOT EXISTS idx_versions_path ON versions(path, cluster);
CREATE INDEX IF NOT EXISTS idx_versions_uuid ON versions(uuid, cluster);
CREATE INDEX IF NOT EXISTS idx_attributes_domain ON attributes(domain, serial);
CREATE INDEX IF NOT EXISTS idx_permissions_subject ON permissions(action, subject);
`

// Version clusters.
const (
	clusterNormal  = 0
	clusterHistory = 1
	clusterDeleted = 2
)

// Permission actions.
const (
	actionRead  = "read"
	actionWrite = "write"
)

// hashLength is the expected length of a SHA256 hash in hexadecimal format.
const hashLength = 64

// dsnParams are applied to every connection opened by the driver.
const dsnParams = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
