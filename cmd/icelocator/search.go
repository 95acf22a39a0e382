package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/icelocator/locator-core/internal/transport"
	"github.com/icelocator/locator-core/pkg/cli"
)

var (
	searchFirstName     string
	searchLastName      string
	searchMiddleName    string
	searchDOB           string
	searchCountry       string
	searchAlienNumber   string
	searchFacilityName  string
	searchCity          string
	searchState         string
	searchZip           string
	searchLanguage      string
	searchFuzzy         bool
	searchThreshold     float64
	searchDateTolerance int
	searchOutputFormat  string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a single search (by name, alien number, or facility)",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFirstName, "first-name", "", "first name (byName search)")
	searchCmd.Flags().StringVar(&searchLastName, "last-name", "", "last name (byName search)")
	searchCmd.Flags().StringVar(&searchMiddleName, "middle-name", "", "middle name")
	searchCmd.Flags().StringVar(&searchDOB, "date-of-birth", "", "date of birth, ISO 8601 (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchCountry, "country-of-birth", "", "country of birth")
	searchCmd.Flags().StringVar(&searchAlienNumber, "alien-number", "", "alien number (byAlienNumber search)")
	searchCmd.Flags().StringVar(&searchFacilityName, "facility-name", "", "facility name (byFacility search)")
	searchCmd.Flags().StringVar(&searchCity, "city", "", "facility city")
	searchCmd.Flags().StringVar(&searchState, "state", "", "facility state")
	searchCmd.Flags().StringVar(&searchZip, "zip-code", "", "facility zip code")
	searchCmd.Flags().StringVar(&searchLanguage, "language", "en", "upstream form language: en or es")
	searchCmd.Flags().BoolVar(&searchFuzzy, "fuzzy", false, "rank results with the fuzzy matcher")
	searchCmd.Flags().Float64Var(&searchThreshold, "confidence-threshold", 0.7, "minimum confidence to keep a fuzzy match")
	searchCmd.Flags().IntVar(&searchDateTolerance, "date-tolerance-days", 0, "date-of-birth tolerance window in days")
	searchCmd.Flags().StringVar(&searchOutputFormat, "output", "json", "output format: json, text, or csv")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	params, operation, err := buildSearchParams()
	if err != nil {
		return err
	}

	d := transport.NewDispatcher(a)
	result, errEnv := d.Dispatch(context.Background(), operation, params)
	if errEnv != nil {
		return cli.NewCommandError("search", fmt.Errorf("%s: %s", errEnv.Error.Kind, errEnv.Error.Message))
	}

	return writeOutput(cmd, result)
}

func buildSearchParams() (json.RawMessage, string, error) {
	switch {
	case searchAlienNumber != "":
		req := transport.SearchByAlienNumberRequest{AlienNumber: searchAlienNumber, Language: searchLanguage}
		b, err := json.Marshal(req)
		return b, transport.OpSearchByAlienNumber, err
	case searchFirstName != "" || searchLastName != "":
		req := transport.SearchByNameRequest{
			FirstName:           searchFirstName,
			LastName:            searchLastName,
			MiddleName:          searchMiddleName,
			DateOfBirth:         searchDOB,
			CountryOfBirth:      searchCountry,
			Language:            searchLanguage,
			Fuzzy:               searchFuzzy,
			ConfidenceThreshold: searchThreshold,
			DateToleranceDays:   searchDateTolerance,
		}
		b, err := json.Marshal(req)
		return b, transport.OpSearchByName, err
	case searchFacilityName != "" || searchCity != "" || searchZip != "":
		req := transport.SearchByFacilityRequest{
			FacilityName: searchFacilityName,
			City:         searchCity,
			State:        searchState,
			ZipCode:      searchZip,
		}
		b, err := json.Marshal(req)
		return b, transport.OpSearchByFacility, err
	default:
		return nil, "", cli.NewCommandError("search", fmt.Errorf("provide --alien-number, --first-name/--last-name, or --facility-name/--city/--zip-code"))
	}
}

func writeOutput(cmd *cobra.Command, v any) error {
	var format cli.OutputFormat
	switch searchOutputFormat {
	case "text":
		format = cli.FormatText
	case "csv":
		format = cli.FormatCSV
	default:
		format = cli.FormatJSON
	}
	formatter := cli.NewFormatter(format)
	if format == cli.FormatCSV {
		if env, ok := v.(transport.ResponseEnvelope); ok {
			return formatter.FormatTo(os.Stdout, env.Results)
		}
	}
	return formatter.FormatTo(os.Stdout, v)
}
