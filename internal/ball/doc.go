// Package ball implements the wire protocol spoken by jughead balls.
//
// A ball is a small networked light that listens for UDP datagrams on port
// 41412. Each datagram is a fixed 12-byte command frame:
//
//	offset  value   meaning
//	0       0x42    frame tag ('B')
//	1..7    0x00    reserved, must be zero
//	8       0x0A    opcode: colour change
//	9       R       red channel
//	10      G       green channel
//	11      B       blue channel
//
// The protocol is fire-and-forget. No response frame exists, so a successful
// send only means the local socket accepted the whole datagram.
//
// # Key Types
//
//   - Color: an RGB triple; channels outside 0..255 are representable so that
//     callers get ErrInvalidColor instead of silent truncation
//   - Frame: the encoded 12-byte command
//   - UDPTransport: a Sender that opens one socket per frame
//   - TransportError: a classified send failure
//
// # Usage
//
//	frame, err := ball.EncodeColorCommand(ball.Color{R: 255})
//	if err != nil {
//	    return err
//	}
//	t := ball.NewUDPTransport(ball.TransportOptions{})
//	if err := t.Send(ctx, "10.0.0.5", frame, 0); err != nil {
//	    if errors.Is(err, ball.ErrTimedOut) {
//	        // device may be offline
//	    }
//	}
package ball
