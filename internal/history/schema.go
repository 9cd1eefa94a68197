package history

const schemaVersion = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS control_cycles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	workload TEXT NOT NULL,
	cpu_target REAL NOT NULL,
	gpu_target REAL NOT NULL,
	cpu_temp REAL NOT NULL,
	gpu_temp REAL NOT NULL,
	vrm_temp REAL NOT NULL,
	cpu_fan_speed REAL NOT NULL,
	gpu_fan_speed REAL NOT NULL,
	emergency INTEGER NOT NULL,
	adapted INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_control_cycles_timestamp ON control_cycles(timestamp);
`

const insertCycleSQL = `
INSERT INTO control_cycles (
	timestamp, workload, cpu_target, gpu_target, cpu_temp, gpu_temp, vrm_temp,
	cpu_fan_speed, gpu_fan_speed, emergency, adapted
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRecentSQL = `
SELECT timestamp, workload, cpu_target, gpu_target, cpu_temp, gpu_temp, vrm_temp,
	cpu_fan_speed, gpu_fan_speed, emergency, adapted
FROM control_cycles
ORDER BY timestamp DESC, id DESC
LIMIT ?`

const pruneSQL = `DELETE FROM control_cycles WHERE timestamp < ?`
