package mysql

const insertRunSQL = `
INSERT INTO reconcile_runs
  (trip_ref, city, api_count, vector_count, graph_count, accepted)
VALUES
  (?, ?, ?, ?, ?, ?)
`

// Drops are written in one multi-row statement: prefix + N value groups.
const insertDropsPrefix = "INSERT INTO reconcile_drops\n  (run_id, seq, source, name, reason, matched_name, distance_m)\nVALUES "

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getRunSQL = `
SELECT
  id,
  trip_ref,
  city,
  api_count,
  vector_count,
  graph_count,
  accepted,
  created_at
FROM reconcile_runs
WHERE id = ?
`

const listDropsSQL = `
SELECT
  source,
  name,
  reason,
  matched_name,
  distance_m
FROM reconcile_drops
WHERE run_id = ?
ORDER BY seq
`
