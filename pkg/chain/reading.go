package chain

import "fmt"

// Reading is one sample from the sensor.
type Reading struct {
	// Timestamp is in seconds since epoch.
	Timestamp   int64
	Temperature float64
	Humidity    float64
}

// Payload formats the reading in its canonical form, which is what gets
// hashed and also what appears on the wire:
//
//	UTC:<ts>,TEMP:<sign><t.ttt>degC,HUM:<h.hh>%
//
// sign is "+" for non-negative temperatures.
func (r Reading) Payload() string {
	var sign string
	temp := r.Temperature
	if temp >= 0 {
		sign = "+"
		if temp == 0 {
			temp = 0 // no "-0.000"
		}
	}
	return fmt.Sprintf("UTC:%d,TEMP:%s%.3fdegC,HUM:%.2f%%", r.Timestamp, sign, temp, r.Humidity)
}
