// Package influxdb records gateway poll telemetry in InfluxDB v2.
//
// Every refresh attempt the bridge makes (not the skipped ones) becomes a
// maxcube_poll point tagged with the gateway host and outcome, so operators
// can see refresh latency and how long a gateway stayed unreachable.
//
// Telemetry is optional (influxdb.enabled) and writes are non-blocking, so a
// slow or absent InfluxDB never holds up the poll lock.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WritePollResult("192.168.1.50", "refreshed", 120*time.Millisecond, time.Now())
package influxdb
