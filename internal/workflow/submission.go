package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DateLayout is the accepted report date format.
const DateLayout = "2006-01-02"

// MsgMissingInput is shown when the file or the date is absent.
const MsgMissingInput = "Please select a file and date."

var (
	ErrBusy              = errors.New("an upload is already in progress")
	ErrInvalidSubmission = errors.New("invalid submission")
)

// Submission is one upload request: a spreadsheet and the date it reports on.
type Submission struct {
	FilePath string
	Date     string
}

func (s Submission) normalized() Submission {
	return Submission{
		FilePath: strings.TrimSpace(s.FilePath),
		Date:     strings.TrimSpace(s.Date),
	}
}

// Validate checks that both fields are present, the date parses and the
// file is a regular file on disk.
func (s Submission) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FilePath, validation.Required, validation.By(regularFile)),
		validation.Field(&s.Date, validation.Required, validation.Date(DateLayout).Error("must be a date in YYYY-MM-DD format")),
	)
}

// message is the user-facing text for a failed validation.
func (s Submission) message(err error) string {
	if s.FilePath == "" || s.Date == "" {
		return MsgMissingInput
	}
	return "Please select a valid file and date: " + err.Error()
}

func regularFile(value interface{}) error {
	path, _ := value.(string)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found")
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	return nil
}
