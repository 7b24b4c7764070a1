package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/wayfind/intent-engine/internal/config"
	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/ui"
)

// errorPayload is the structured error object emitted on stdout when
// --format json is in effect. Diagnostics still go to stderr either way.
type errorPayload struct {
	Error        string `json:"error"`
	Tag          string `json:"tag,omitempty"`
	Subject      string `json:"subject,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	InvocationID string `json:"invocation_id"`
}

// reportError prints an error per the active format and returns it so
// callers hand it back to cobra, which drives the exit code. rootCmd
// silences cobra's own printing, so this is the single reporting site.
func reportError(err error) error {
	if err == nil {
		return nil
	}

	prefix := ui.StyleError.Render("Error:")
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "%s %+v\n", prefix, err)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s\n", prefix, err.Error())
	}

	if jsonOutput() {
		payload := errorPayload{
			Error:        err.Error(),
			Tag:          string(intent.TagOf(err)),
			SessionID:    config.SessionID(),
			InvocationID: uuid.New().String(),
		}
		var ie *intent.Error
		if errors.As(err, &ie) {
			payload.Subject = ie.Subject
		}
		_ = json.NewEncoder(os.Stdout).Encode(payload)
	}

	return err
}
