package domain

// MessageType is the kind of a hot update message.
type MessageType string

const (
	// MessageUpdate instructs the client to fetch and hot-swap a module.
	MessageUpdate MessageType = "update"
	// MessageReload instructs the client to perform a full page reload.
	MessageReload MessageType = "reload"
	// MessageError surfaces a build failure to the client overlay.
	MessageError MessageType = "error"
	// MessageConnected is sent once when a client connects.
	MessageConnected MessageType = "connected"
	// MessageHotAccept is sent by a client when a module registers an accept handler.
	MessageHotAccept MessageType = "hotAccept"
)

// Message is a flat hot update record exchanged over the message channel.
type Message struct {
	Type            MessageType `json:"type"`
	URL             string      `json:"url,omitzero"`
	Bubbled         bool        `json:"bubbled,omitzero"`
	// Root marks an update that no importer can take over. A client holding
	// the module without an accept handler reloads the page.
	Root            bool        `json:"root,omitzero"`
	Title           string      `json:"title,omitzero"`
	ErrorMessage    string      `json:"errorMessage,omitzero"`
	FileLoc         string      `json:"fileLoc,omitzero"`
	ErrorStackTrace string      `json:"errorStackTrace,omitzero"`
}

// ClientMessage is an inbound record sent by a browser.
type ClientMessage struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id"`
}

// NewUpdateMessage creates an update message for url.
func NewUpdateMessage(url string, bubbled bool) Message {
	return Message{Type: MessageUpdate, URL: url, Bubbled: bubbled}
}

// NewRootUpdateMessage creates an update message for a module nothing imports.
func NewRootUpdateMessage(url string, bubbled bool) Message {
	return Message{Type: MessageUpdate, URL: url, Bubbled: bubbled, Root: true}
}

// NewReloadMessage creates a full reload message.
func NewReloadMessage() Message {
	return Message{Type: MessageReload}
}

// NewErrorMessage creates an error message from a build failure.
func NewErrorMessage(err *BuildError) Message {
	return Message{
		Type:            MessageError,
		Title:           err.Title,
		ErrorMessage:    err.Message,
		FileLoc:         err.FileLoc,
		ErrorStackTrace: err.Stack,
	}
}
