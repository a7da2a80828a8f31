package google

import (
	"io/ioutil"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcalendar "google.golang.org/api/calendar/v3"
)

// ReadGoogleConfig reads the oauth client credentials from disk
func ReadGoogleConfig() (*oauth2.Config, error) {
	credentialsFile := "./keys/credentials.json"
	envFile, ok := os.LookupEnv("GOOGLE_CREDENTIALS_FILE")
	if ok {
		credentialsFile = envFile
	}

	b, err := ioutil.ReadFile(credentialsFile)
	if err != nil {
		return nil, err
	}

	// If modifying these scopes, connected operators have to authorize again
	config, err := google.ConfigFromJSON(b, gcalendar.CalendarEventsScope)
	if err != nil {
		return nil, err
	}

	return config, nil
}
