package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// StreamPrinterFunc returns a watermill handler that renders stream events to
// w: status lines in brackets, response deltas verbatim, tool calls as yaml.
func StreamPrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJSON(msg.Payload)
		if err != nil {
			return nil
		}

		switch p_ := e.(type) {
		case *EventStatus:
			_, err = fmt.Fprintf(w, "[%s]\n", p_.Message)

		case *EventSessionCreated:
			_, err = fmt.Fprintf(w, "[session %s]\n", p_.SessionID)

		case *EventStepComplete:
			_, err = fmt.Fprintf(w, "[%s completed]\n", p_.Step)

		case *EventToolCallStart:
			v_, err := yaml.Marshal(map[string]interface{}{
				"tool":  p_.Tool,
				"input": string(p_.Input),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s\n", v_)
			if err != nil {
				return err
			}

		case *EventToolCallComplete:
			v_, err := yaml.Marshal(map[string]interface{}{
				"tool":   p_.Tool,
				"output": string(p_.Output),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s\n", v_)
			if err != nil {
				return err
			}

		case *EventToolCallError:
			_, err = fmt.Fprintf(w, "[tool %s failed: %s]\n", p_.Tool, p_.Error)

		case *EventResponseChunk:
			if isFirst && name != "" {
				isFirst = false
				if _, err := fmt.Fprintf(w, "\n%s: \n", name); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(w, "%s", p_.Content)

		case *EventResponseComplete:
			if !strings.HasSuffix(p_.FullResponse, "\n") {
				_, err = fmt.Fprintf(w, "\n")
			}

		case *EventError:
			_, err = fmt.Fprintf(w, "\nerror: %s\n", p_.Message)

		case *EventResponseStart, *EventComplete:
		}

		return err
	}
}
