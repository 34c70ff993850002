package telegram

import (
	"bufio"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/mbruggen/homeflux/pkg/types"
	"github.com/sigurn/crc16"
)

// maxTelegramLines bounds the read loop. The serial stream has no wall-clock
// timeout of its own; a telegram that doesn't terminate within this many
// lines is structurally invalid.
const maxTelegramLines = 40

// NewReader initializes a reader for the P1 port.
func NewReader(device string, baudrate uint) *Reader {
	return &Reader{
		device:   device,
		baudrate: baudrate,
		fields: map[string]float64{
			"T1in":     0,
			"T2in":     0,
			"T1out":    0,
			"T2out":    0,
			"powerin":  0,
			"powerout": 0,
			"tarif":    1,
			"swits":    0,
		},
	}
}

// Connect opens the serial port. The P1 port talks 7E1.
func (r *Reader) Connect() error {
	options := serial.OpenOptions{
		PortName:        r.device,
		BaudRate:        r.baudrate,
		DataBits:        7,
		ParityMode:      serial.PARITY_EVEN,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	r.serialPort = port
	log.Printf("Connected to P1 port on %s", r.device)
	return nil
}

func (r *Reader) Disconnect() {
	if r.serialPort != nil {
		r.serialPort.Close()
		log.Println("Disconnected from P1 port")
	}
}

// StartReading reads telegrams until stopped or until too many consecutive
// errors occur. Each successfully translated reading is handed to
// handleReading; a terminal condition is reported through handleError.
func (r *Reader) StartReading(
	handleReading func(reading *types.Sample),
	handleError func(error),
) {
	r.stopSignal.Store(false)

	go func() {
		consecutiveErrors := 0
		maxErrors := 10
		var lastError error

		if err := r.Connect(); err != nil {
			handleError(err)
			return
		}

		for consecutiveErrors < maxErrors {
			if r.stopSignal.Load() {
				log.Println("Stop signal received, disconnecting")
				r.Disconnect()
				return
			}

			lines, err := r.ReadTelegram()
			if err != nil {
				consecutiveErrors++
				lastError = err
				log.Printf("Error reading telegram (%d/%d): %v", consecutiveErrors, maxErrors, err)
				time.Sleep(time.Second)
				continue
			}

			reading := r.Translate(lines, time.Now())
			r.readingMutex.Lock()
			r.latestReading = &reading
			r.readingMutex.Unlock()

			go handleReading(&reading)
			consecutiveErrors = 0
		}

		log.Printf("Too many consecutive errors (%d), stopping reader: %v", maxErrors, lastError)
		handleError(lastError)
		r.Disconnect()
	}()
}

func (r *Reader) StopReading() {
	r.stopSignal.Store(true)
	r.Disconnect()
}

func (r *Reader) GetLatestReading() *types.Sample {
	r.readingMutex.RLock()
	defer r.readingMutex.RUnlock()
	return r.latestReading
}

// ReadTelegram collects one framed telegram from the port: lines from the
// `/` start marker through the `!` terminator. Only total structural
// failure (no terminator within the line budget, or a frame that fails its
// CRC) invalidates a reading.
func (r *Reader) ReadTelegram() ([]string, error) {
	if r.serialPort == nil {
		return nil, fmt.Errorf("serial port not connected")
	}

	var lines []string
	var raw strings.Builder
	inTelegram := false
	reader := bufio.NewReader(r.serialPort)

	for loops2go := maxTelegramLines; loops2go > 0; loops2go-- {
		rawLine, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line := strings.TrimRight(rawLine, "\r\n")

		if strings.HasPrefix(line, "/") {
			lines = lines[:0]
			raw.Reset()
			inTelegram = true
		}
		if !inTelegram {
			continue
		}
		raw.WriteString(rawLine)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if strings.HasPrefix(line, "!") {
			if !validCRC(raw.String(), line) {
				return nil, fmt.Errorf("telegram failed CRC check")
			}
			return lines, nil
		}
	}
	return nil, fmt.Errorf("no telegram terminator within %d lines", maxTelegramLines)
}

// validCRC checks the CRC16/ARC trailer when the meter supplies one. Older
// meters end the frame with a bare `!` and are accepted as-is. The checksum
// covers the raw frame from `/` through `!` inclusive.
func validCRC(raw, last string) bool {
	if len(last) < 5 {
		return true
	}
	given := strings.ToUpper(last[1:5])

	data := raw[:strings.LastIndexByte(raw, '!')+1]
	table := crc16.MakeTable(crc16.CRC16_ARC)
	calc := fmt.Sprintf("%04X", crc16.Checksum([]byte(data), table))
	return given == calc
}

// Translate converts one telegram into a canonical sample, stamped with the
// local wall clock at translation time. kWh registers become integer Wh,
// kW readings become integer W. A line that fails to parse is logged and
// skipped; the reading as a whole survives partial telegrams.
func (r *Reader) Translate(lines []string, now time.Time) types.Sample {
	for _, line := range lines {
		code, value, ok := splitLine(line)
		if !ok {
			continue
		}
		var err error
		switch code {
		case "1-0:1.8.1": // T1 in, kWh
			err = r.setScaled("T1in", value)
		case "1-0:1.8.2": // T2 in, kWh
			err = r.setScaled("T2in", value)
		case "1-0:2.8.1": // T1 out, kWh
			err = r.setScaled("T1out", value)
		case "1-0:2.8.2": // T2 out, kWh
			err = r.setScaled("T2out", value)
		case "1-0:1.7.0": // power in, kW
			err = r.setScaled("powerin", value)
		case "1-0:2.7.0": // power out, kW
			err = r.setScaled("powerout", value)
		case "0-0:96.14.0": // tariff indicator
			err = r.setInt("tarif", value)
		case "0-0:96.3.10": // switch position, not always present
			err = r.setInt("swits", value)
		}
		if err != nil {
			log.Printf("Conversion not possible for element %q: %v", line, err)
		}
	}
	return types.NewSample(now, r.fields)
}

// splitLine splits an OBIS line like `1-0:1.8.1(00175.402*kWh)` into its
// code and first value.
func splitLine(line string) (code, value string, ok bool) {
	open := strings.IndexByte(line, '(')
	if open <= 0 {
		return "", "", false
	}
	rest := line[open+1:]
	end := strings.IndexAny(rest, "*)")
	if end < 0 {
		return "", "", false
	}
	return line[:open], rest[:end], true
}

func (r *Reader) setScaled(field, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	r.fields[field] = float64(int64(f * 1000))
	return nil
}

func (r *Reader) setInt(field, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	r.fields[field] = float64(n)
	return nil
}
