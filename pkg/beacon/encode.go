package beacon

import "encoding/json"

// wireMessage is the JSON wire shape for a BeaconMessage on the queue. No
// ecosystem serialization library fits this small, purely-internal
// producer/consumer envelope better than the standard encoder.
type wireMessage struct {
	Event       Event    `json:"event"`
	AdID        string   `json:"adId"`
	Channel     string   `json:"channel"`
	TrackerURLs []string `json:"trackerUrls"`
	Metadata    Metadata `json:"metadata"`
	DedupKey    string   `json:"dedupKey"`
}

func encodeMessage(msg BeaconMessage) ([]byte, error) {
	w := wireMessage{
		Event:       msg.Event,
		AdID:        msg.AdID,
		Channel:     msg.Channel,
		TrackerURLs: msg.TrackerURLs,
		Metadata:    msg.Metadata,
		DedupKey:    msg.DedupKey,
	}
	return json.Marshal(w)
}

func decodeMessage(body []byte) (BeaconMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(body, &w); err != nil {
		return BeaconMessage{}, err
	}
	return BeaconMessage{
		Event:       w.Event,
		AdID:        w.AdID,
		Channel:     w.Channel,
		TrackerURLs: w.TrackerURLs,
		Metadata:    w.Metadata,
		DedupKey:    w.DedupKey,
	}, nil
}
