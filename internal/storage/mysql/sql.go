package mysql

// -----------------------------------------------------------------------------
// WRITES
// -----------------------------------------------------------------------------

const insertFaultSQL = `
INSERT INTO upstream_faults
  (service, op, kind, http_status, detail)
VALUES
  (?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Served by idx_upstream_faults_service (service, occurred_at, id).
const recentFaultsSQL = `
SELECT service, op, kind, http_status, detail
FROM upstream_faults
WHERE service = ?
ORDER BY occurred_at DESC, id DESC
LIMIT ?
`
