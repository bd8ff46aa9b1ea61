// ABOUTME: ODAS separated-audio stream contract
// ABOUTME: Parameters, frame layout, decoder, encoder and handshake
// Package odas implements the binary frame contract of the audio stream
// emitted by the ODAS sound source separation engine.
//
// Every hop the engine writes one frame holding MaxSources slots. A slot is a
// TagLen-byte tracking tag plus HopSize signed PCM samples of BitDepth bits:
//
//	frame size = MaxSources * (TagLen + HopSize*BitDepth/8)
//
// With the defaults (4 sources, 20-byte tags, 128-sample hop, 16 bit) that is
// 4 * (20 + 256) = 1104 bytes every 8ms.
//
// Params must match the engine build exactly; nothing in the stream describes
// itself. Senders that can, announce their parameters with a Handshake first.
//
// Example:
//
//	dec, err := odas.NewDecoder(odas.DefaultParams())
//	dec.Write(chunk)
//	for {
//	    frame, err := dec.Next()
//	    if errors.Is(err, odas.ErrNeedMoreData) {
//	        break
//	    }
//	    ...
//	}
package odas
