package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Draft:
		o.printDraft(v)
	case DraftDetail:
		o.printDraftDetail(v)
	case DraftList:
		o.printDraftList(v)
	case SaveResult:
		o.printSaveResult(v)
	case StatusResult:
		o.printStatusResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// ConflictView response type (matches API)
type ConflictView struct {
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Draft response type
type Draft struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Step      int           `json:"step"`
	Status    string        `json:"status"`
	SyncState string        `json:"sync_state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Conflict  *ConflictView `json:"conflict,omitempty"`
}

// DraftDetail response type
type DraftDetail struct {
	Draft
	Payload json.RawMessage `json:"payload"`
}

// DraftList response type
type DraftList struct {
	Drafts []Draft `json:"drafts"`
}

// SaveResult response type
type SaveResult struct {
	ID string `json:"id"`
}

// StatusResult response type
type StatusResult struct {
	IsSaving  bool       `json:"is_saving"`
	LastSaved *time.Time `json:"last_saved"`
	IsOnline  bool       `json:"is_online"`
	Error     string     `json:"error,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printDraft(d Draft) {
	fmt.Printf("Draft: %s (%s)\n", d.Name, d.ID)
	fmt.Printf("Step: %d\n", d.Step)
	fmt.Printf("Status: %s\n", d.Status)
	fmt.Printf("Sync State: %s\n", d.SyncState)
	fmt.Printf("Updated: %s\n", d.UpdatedAt.Format(time.RFC3339))
	if d.Conflict != nil {
		fmt.Printf("Conflict: remote edited %q at %s\n", d.Conflict.Name, d.Conflict.UpdatedAt.Format(time.RFC3339))
	}
}

func (o *Output) printDraftDetail(d DraftDetail) {
	o.printDraft(d.Draft)
	if len(d.Payload) > 0 {
		fmt.Printf("Payload: %s\n", string(d.Payload))
	}
}

func (o *Output) printDraftList(l DraftList) {
	if len(l.Drafts) == 0 {
		fmt.Println("No drafts")
		return
	}
	fmt.Printf("Drafts (%d):\n", len(l.Drafts))
	for _, d := range l.Drafts {
		conflictStr := ""
		if d.Conflict != nil {
			conflictStr = " [conflict]"
		}
		fmt.Printf("  - %s (%s) step %d, %s%s\n", d.Name, d.ID, d.Step, d.SyncState, conflictStr)
	}
}

func (o *Output) printSaveResult(s SaveResult) {
	fmt.Printf("Saved: %s\n", s.ID)
}

func (o *Output) printStatusResult(s StatusResult) {
	onlineStr := "offline"
	if s.IsOnline {
		onlineStr = "online"
	}
	fmt.Printf("Connectivity: %s\n", onlineStr)
	if s.IsSaving {
		fmt.Println("Saving: in progress")
	}
	if s.LastSaved != nil {
		fmt.Printf("Last Saved: %s\n", s.LastSaved.Format(time.RFC3339))
	}
	if s.Error != "" {
		fmt.Printf("Last Error: %s\n", s.Error)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
