package camera

import "fmt"

// channelNames maps a quality tier to the numbered channel used by the
// Streaming/Channels and ISAPI patterns.
var channelNames = map[Quality]string{
	QualityMain: "101",
	QualitySub:  "102",
}

// streamNames maps a quality tier to the named stream used by the av_stream
// pattern.
var streamNames = map[Quality]string{
	QualityMain: "main_stream",
	QualitySub:  "sub_stream",
}

// Resolve builds the ordered, finite list of candidate RTSP URIs for a
// camera, substituting credentials, address and channel into the known
// vendor patterns. The numbered-channel pattern comes first because it works
// on the widest firmware range; the ISAPI variant last. Pure; the only
// failure mode is malformed input.
func Resolve(cfg Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	channel := channelNames[cfg.Quality]
	stream := streamNames[cfg.Quality]

	return []string{
		fmt.Sprintf("rtsp://%s:%s@%s:%d/Streaming/Channels/%s?tcp",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, channel),
		fmt.Sprintf("rtsp://%s:%s@%s:%d/h264/ch1/%s/av_stream",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, stream),
		fmt.Sprintf("rtsp://%s:%s@%s:%d/ISAPI/Streaming/channels/%s",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, channel),
	}, nil
}
