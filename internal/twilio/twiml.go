package twilio

import "encoding/xml"

type twimlStream struct {
	URL string `xml:"url,attr"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

// ConnectStreamTwiML renders the TwiML instructing Twilio to open a media
// stream to the given websocket URL.
func ConnectStreamTwiML(streamURL string) (string, error) {
	b, err := xml.Marshal(twimlResponse{Connect: twimlConnect{Stream: twimlStream{URL: streamURL}}})
	if err != nil {
		return "", err
	}
	return xml.Header + string(b), nil
}
