// Package audio describes raw audio formats and the output devices speech is
// played through.
package audio

// Output plays raw mono audio in the format reported by EncodingInfo.
type Output interface {
	EncodingInfo() EncodingInfo
	SendAudio(audio []byte) error
	// Mark calls callback once every byte sent before the mark has been
	// played.
	Mark(name string, callback func(string)) error
	// ClearBuffer drops any audio not yet played. Pending marks are dropped
	// without being called.
	ClearBuffer()
}
