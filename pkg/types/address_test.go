package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() Address {
	return Address{
		Street:  "Av. Larco 1301",
		City:    "Lima",
		State:   "Miraflores",
		ZipCode: "15074",
		Country: "PE",
	}
}

func TestAddressValidate(t *testing.T) {
	require.NoError(t, validAddress().Validate())

	missingCity := validAddress()
	missingCity.City = "  "
	err := missingCity.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "city")

	missingZip := validAddress()
	missingZip.ZipCode = ""
	err = missingZip.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipCode")
}

func TestAddressValueScanRoundTrip(t *testing.T) {
	addr := validAddress()
	addr.Phone = "+51 999 888 777"

	value, err := addr.Value()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, addr, decoded)

	var fromBytes Address
	require.NoError(t, fromBytes.Scan([]byte(value.(string))))
	assert.Equal(t, addr, fromBytes)
}

func TestAddressScanNil(t *testing.T) {
	addr := validAddress()
	require.NoError(t, addr.Scan(nil))
	assert.Equal(t, Address{}, addr)
}
