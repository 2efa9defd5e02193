package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedEvent = `{"issuerId":"civil-service","judgmentId":"J1","eventTimestamp":"2024-03-05T10:00:00Z",` +
	`"siteId":"S1","caseReference":"CR1","caseNumber":"0AB12345","total":"10.50","orderDate":"2024-03-01",` +
	`"registrationType":"REGISTERED","defendant1":{"name":"Jane Doe","address":{"lines":["1 High St"],"postcode":"AB1 2CD"}}}`

func TestDecodeEvents(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		events, err := decodeEvents(strings.NewReader("\n [" + seedEvent + "," + seedEvent + "]"))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "J1", events[0].JudgmentID)
		assert.Equal(t, "10.5", events[1].Total.String())
	})

	t.Run("one object per line", func(t *testing.T) {
		events, err := decodeEvents(strings.NewReader(seedEvent + "\n" + seedEvent + "\n"))
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		events, err := decodeEvents(strings.NewReader("  \n"))
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("malformed object names its position", func(t *testing.T) {
		_, err := decodeEvents(strings.NewReader(seedEvent + "\n{\"judgmentId\": 3}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event 2")
	})
}
