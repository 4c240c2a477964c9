package fiberspace

import "github.com/ember-actors/fiberspace/mailbox"

// Message is the ordered triple delivered to a fiber: sender name,
// message type, and an opaque content value.
type Message = mailbox.Message
