package telegram

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/require"
)

// fakePort replays a fixed byte stream as the serial port.
type fakePort struct {
	*bytes.Reader
}

func (fakePort) Write(p []byte) (int, error) { return len(p), nil }
func (fakePort) Close() error                { return nil }

// buildTelegram frames the given data lines and appends a valid CRC trailer.
func buildTelegram(dataLines []string) string {
	var b strings.Builder
	b.WriteString("/ISK5\\2M550T-1012\r\n")
	b.WriteString("\r\n")
	for _, line := range dataLines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("!")

	table := crc16.MakeTable(crc16.CRC16_ARC)
	crc := crc16.Checksum([]byte(b.String()), table)
	return b.String() + fmt.Sprintf("%04X", crc) + "\r\n"
}

func TestReadTelegram_ValidFrame(t *testing.T) {
	stream := "garbage before the frame\r\n" + buildTelegram([]string{
		"1-0:1.8.1(00175.402*kWh)",
		"1-0:1.7.0(01.193*kW)",
	})
	r := NewReader("/dev/null", 9600)
	r.serialPort = fakePort{bytes.NewReader([]byte(stream))}

	lines, err := r.ReadTelegram()
	require.NoError(t, err)
	require.Equal(t, "1-0:1.8.1(00175.402*kWh)", lines[1])
	require.True(t, strings.HasPrefix(lines[len(lines)-1], "!"))
}

func TestReadTelegram_BadCRC(t *testing.T) {
	frame := buildTelegram([]string{"1-0:1.8.1(00175.402*kWh)"})
	frame = strings.Replace(frame, "1-0:1.8.1", "1-0:1.8.2", 1) // corrupt after checksumming

	r := NewReader("/dev/null", 9600)
	r.serialPort = fakePort{bytes.NewReader([]byte(frame))}

	_, err := r.ReadTelegram()
	require.ErrorContains(t, err, "CRC")
}

func TestReadTelegram_BareTerminatorAccepted(t *testing.T) {
	// older meters send no checksum at all
	stream := "/ISK5\\2M550T-1012\r\n\r\n1-0:1.8.1(00175.402*kWh)\r\n!\r\n"
	r := NewReader("/dev/null", 9600)
	r.serialPort = fakePort{bytes.NewReader([]byte(stream))}

	_, err := r.ReadTelegram()
	require.NoError(t, err)
}

func TestStopReading_RaisesStopFlag(t *testing.T) {
	r := NewReader("/dev/null", 9600)
	r.serialPort = fakePort{bytes.NewReader(nil)}

	require.False(t, r.stopSignal.Load())
	r.StopReading()
	require.True(t, r.stopSignal.Load())
}

func TestTranslate_ScalesToMilliUnits(t *testing.T) {
	r := NewReader("/dev/null", 9600)
	now, _ := time.ParseInLocation("2006-01-02 15:04:05", "2026-03-14 10:00:00", time.Local)

	smp := r.Translate([]string{
		"1-0:1.8.1(00175.402*kWh)",
		"1-0:1.8.2(00230.000*kWh)",
		"1-0:2.8.1(00014.150*kWh)",
		"1-0:1.7.0(01.193*kW)",
		"0-0:96.14.0(0002)",
	}, now)

	require.Equal(t, "2026-03-14 10:00:00", smp.SampleTime)
	require.Equal(t, float64(175402), smp.Field("T1in", -1))
	require.Equal(t, float64(230000), smp.Field("T2in", -1))
	require.Equal(t, float64(14150), smp.Field("T1out", -1))
	require.Equal(t, float64(1193), smp.Field("powerin", -1))
	require.Equal(t, float64(2), smp.Field("tarif", -1))
	// never seen, stays at the template default
	require.Equal(t, float64(0), smp.Field("swits", -1))
}

func TestTranslate_RegistersPersistAcrossTelegrams(t *testing.T) {
	r := NewReader("/dev/null", 9600)
	now := time.Now()

	r.Translate([]string{"1-0:1.8.1(00175.402*kWh)"}, now)
	smp := r.Translate([]string{"1-0:1.7.0(00.500*kW)"}, now)

	require.Equal(t, float64(175402), smp.Field("T1in", -1))
	require.Equal(t, float64(500), smp.Field("powerin", -1))
}

func TestTranslate_SkipsMalformedLines(t *testing.T) {
	r := NewReader("/dev/null", 9600)
	smp := r.Translate([]string{
		"1-0:1.8.1(not-a-number*kWh)",
		"no parens at all",
		"1-0:1.7.0(00.250*kW)",
	}, time.Now())

	require.Equal(t, float64(0), smp.Field("T1in", -1))
	require.Equal(t, float64(250), smp.Field("powerin", -1))
}

func TestSplitLine(t *testing.T) {
	code, value, ok := splitLine("1-0:1.8.1(00175.402*kWh)")
	require.True(t, ok)
	require.Equal(t, "1-0:1.8.1", code)
	require.Equal(t, "00175.402", value)

	code, value, ok = splitLine("0-0:96.14.0(0002)")
	require.True(t, ok)
	require.Equal(t, "0-0:96.14.0", code)
	require.Equal(t, "0002", value)

	_, _, ok = splitLine("!A1B2")
	require.False(t, ok)
}
