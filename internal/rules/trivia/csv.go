package trivia

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ReadBankCSV loads a question bank from a CSV file with one question per
// row: prompt, index of the correct choice, then two or more choices.
func ReadBankCSV(filePath string) ([]Question, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read question file %s: %w", filePath, err)
	}
	defer f.Close()
	return ParseBankCSV(f)
}

func ParseBankCSV(r io.Reader) ([]Question, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	var questions []Question
	for i, record := range records {
		if len(record) < 4 {
			log.Warn().Int("line", i+1).Msg("[ReadBankCSV] skipping short record")
			continue
		}
		answer, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			// header rows land here too
			log.Debug().Int("line", i+1).Str("answer", record[1]).Msg("[ReadBankCSV] invalid answer index")
			continue
		}
		questions = append(questions, Question{
			Prompt:  strings.TrimSpace(record[0]),
			Choices: record[2:],
			Answer:  answer,
		})
	}
	return validBank(questions)
}
