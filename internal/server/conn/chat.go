package conn

import (
	"encoding/json"

	"github.com/go-theft-craft/hologram/internal/server/packet"
)

// component is a JSON chat component.
type component struct {
	Text       string      `json:"text"`
	Color      string      `json:"color,omitempty"`
	ClickEvent *chatEvent  `json:"clickEvent,omitempty"`
	HoverEvent *chatEvent  `json:"hoverEvent,omitempty"`
	Extra      []component `json:"extra,omitempty"`
}

type chatEvent struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

func (m component) String() string {
	b, err := json.Marshal(m)
	if err != nil {
		return `{"text":""}`
	}
	return string(b)
}

func chatJSON(text, color string) string {
	return component{Text: text, Color: color}.String()
}

func escapeJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// sendComponent sends a system chat component to this connection only.
func (c *Connection) sendComponent(m component) {
	_ = c.writePacket(&packet.ChatMessage{
		JSONData: m.String(),
		Position: packet.ChatPositionSystem,
	})
}

// sendSystemMsg sends a coloured system message to this connection only.
func (c *Connection) sendSystemMsg(text, color string) {
	c.sendComponent(component{Text: text, Color: color})
}

// sendErrorMsg sends a red system message.
func (c *Connection) sendErrorMsg(text string) {
	c.sendSystemMsg(text, "red")
}

// sendSuccessMsg sends a gold system message.
func (c *Connection) sendSuccessMsg(text string) {
	c.sendSystemMsg(text, "gold")
}
