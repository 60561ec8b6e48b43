package configurator

import (
	"encoding/json"
	"strings"
)

// Selection is the pending answer to the outstanding choice prompt, in pick order.
type Selection struct {
	uiType UIType
	picked []string
}

func newSelection(uiType UIType) *Selection {
	return &Selection{uiType: uiType}
}

// Pick applies one click: radio replaces the selection, checkbox toggles membership.
func (s *Selection) Pick(option string) {
	if s.uiType == UITypeRadio {
		s.picked = []string{option}
		return
	}
	for i, p := range s.picked {
		if p == option {
			s.picked = append(s.picked[:i], s.picked[i+1:]...)
			return
		}
	}
	s.picked = append(s.picked, option)
}

func (s *Selection) Empty() bool {
	return s == nil || len(s.picked) == 0
}

func (s *Selection) Contains(option string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.picked {
		if p == option {
			return true
		}
	}
	return false
}

func (s *Selection) Values() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.picked...)
}

// Display is the transcript text of the submitted selection.
func (s *Selection) Display() string {
	return strings.Join(s.picked, ", ")
}

// Payload is the wire message: the chosen option for radio, a JSON list for checkbox.
func (s *Selection) Payload() string {
	if s.uiType == UITypeRadio && len(s.picked) == 1 {
		return s.picked[0]
	}
	data, err := json.Marshal(s.picked)
	if err != nil {
		return s.Display()
	}
	return string(data)
}
