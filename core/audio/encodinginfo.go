package audio

// Speech is streamed and played back as 24 kHz mono PCM.
const (
	DefaultSampleRate = 24000
	DefaultFormat     = FormatLinear16
)

type Format string

const FormatLinear16 Format = "linear16"

type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format == ""
}

// SampleSize is the size in bytes of one mono sample, or 0 when the format
// cannot be played back.
func (e EncodingInfo) SampleSize() int {
	if e.Format == FormatLinear16 {
		return 2
	}
	return 0
}
