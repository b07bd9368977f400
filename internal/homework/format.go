package homework

import "fmt"

// WorkItem is one reviewed submission.
type WorkItem struct {
	Name   string
	Status Status
}

// Parse checks a single raw element of the "homeworks" list.
func Parse(item any) (WorkItem, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return WorkItem{}, &SchemaError{Reason: "homework not a mapping"}
	}

	rawName, ok := m["homework_name"]
	if !ok {
		return WorkItem{}, &MissingFieldError{Field: "homework_name"}
	}
	rawStatus, ok := m["status"]
	if !ok {
		return WorkItem{}, &MissingFieldError{Field: "status"}
	}

	status, _ := rawStatus.(string)
	if _, known := Verdict(Status(status)); !known {
		if status == "" {
			status = fmt.Sprint(rawStatus)
		}
		return WorkItem{}, &UnknownStatusError{Status: status}
	}

	name, ok := rawName.(string)
	if !ok {
		name = fmt.Sprint(rawName)
	}
	return WorkItem{Name: name, Status: Status(status)}, nil
}

// Message renders the notification text for a parsed item.
func (w WorkItem) Message() string {
	verdict, _ := Verdict(w.Status)
	return fmt.Sprintf("status changed for %q: %s", w.Name, verdict)
}

// Format parses one raw element and renders its notification text.
func Format(item any) (string, error) {
	w, err := Parse(item)
	if err != nil {
		return "", err
	}
	return w.Message(), nil
}
