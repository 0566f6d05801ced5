// Package influxdb records jughead command metrics in InfluxDB.
//
// It wraps influxdb-client-go v2 with connection management and a
// non-blocking, batched write path. Each colour command produces one
// ball_commands point tagged with the ball id and outcome, so send latency
// and failure rates can be charted per ball.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCommandMetric(1, "success", 3*time.Millisecond)
package influxdb
