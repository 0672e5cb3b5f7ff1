package sensor

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/physic"
)

func TestBand(t *testing.T) {
	testCases := []struct {
		temp     float64
		expected bool
	}{
		{-0.1, false},
		{0, true},
		{22.5, true},
		{40, true},
		{40.001, false},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.expected, DefaultBand.Contains(tc.temp), "%v", tc.temp)
	}
	require.Equal(t, "[0, 40]", DefaultBand.String())
}

func TestFromEnv(t *testing.T) {
	s := FromEnv(physic.Env{
		Temperature: physic.ZeroCelsius + 22500*physic.MilliKelvin,
		Humidity:    48*physic.PercentRH + 3*physic.MilliRH,
	})
	require.InDelta(t, 22.5, s.Temperature, 1e-9)
	require.InDelta(t, 48.3, s.Humidity, 1e-9)

	s = FromEnv(physic.Env{Temperature: physic.ZeroCelsius - 5*physic.Kelvin})
	require.InDelta(t, -5, s.Temperature, 1e-9)
}

func TestStatic(t *testing.T) {
	s, err := Static{Temperature: 1, Humidity: 2}.Read()
	require.NoError(t, err)
	require.Equal(t, Sample{1, 2}, s)
}

func TestDrift(t *testing.T) {
	d := NewDrift(Sample{Temperature: 20, Humidity: 99.9}, 1)
	first, err := d.Read()
	require.NoError(t, err)
	require.Equal(t, Sample{20, 99.9}, first)
	for i := 0; i < 100; i++ {
		s, err := d.Read()
		require.NoError(t, err)
		require.InDelta(t, 20, s.Temperature, float64(i+1)*d.Step+1e-9)
		require.GreaterOrEqual(t, s.Humidity, 0.0)
		require.LessOrEqual(t, s.Humidity, 100.0)
	}
}

func TestReadFunc(t *testing.T) {
	var sensor Sensor = ReadFunc(func() (Sample, error) {
		return Sample{}, errors.Wrap(ErrSensorFault, "checksum")
	})
	_, err := sensor.Read()
	require.Equal(t, ErrSensorFault, errors.Cause(err))
}

func TestFault(t *testing.T) {
	errChecksum := stderrors.New("checksum mismatch")
	testCases := []struct {
		name   string
		err    error
		target error
	}{
		{"fault", Fault(errChecksum), ErrSensorFault},
		{"driver error", Fault(errChecksum), errChecksum},
		{"i2c error", Fault(io.ErrUnexpectedEOF), io.ErrUnexpectedEOF},
		{"wrapped", errors.Wrap(Fault(io.EOF), "read"), io.EOF},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.err, tc.target)
			require.ErrorIs(t, tc.err, ErrSensorFault)
		})
	}
	require.Equal(t, "sensor fault: checksum mismatch", Fault(errChecksum).Error())
}
