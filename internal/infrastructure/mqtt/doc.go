// Package mqtt provides the MQTT client the jughead command bridge runs on.
//
// It manages the broker connection with auto-reconnect, publishing with QoS,
// wildcard subscriptions restored after reconnect, and a retained Last Will
// on jughead/system/status so other services see when the dispatcher drops.
//
// # Topics
//
//	jughead/command/ball/{id}   commands in
//	jughead/ack/ball/{id}       acknowledgements out
//	jughead/state/ball/{id}     retained ball state out
//	jughead/system/status       online / offline / LWT
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBallCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
