package assistant

import "context"

// AcceptImages is the picker filter used for meal photos.
const AcceptImages = "image/*"

// Picker opens a native file or camera picker. Open returns once the picker is
// shown; the outcome is reported back through Session.PhotoSelected or
// Session.PhotoCancelled.
type Picker interface {
	Open(ctx context.Context, accept string) error
}

// Microphone acquires the capture device. onData is called for every
// buffered chunk until the returned stream is stopped.
type Microphone interface {
	Start(ctx context.Context, onData func(chunk []byte)) (Stream, error)
}

// Stream is an acquired microphone. Stop releases the device.
type Stream interface {
	MimeType() string
	Stop() error
}

// Notifier shows a blocking notice to the user.
type Notifier interface {
	Notify(ctx context.Context, text string)
}
