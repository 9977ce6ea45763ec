package printer

import (
	"fmt"
	"time"
)

// Label identifies one of the physical labels a unit carries.
type Label string

const (
	LabelIdentity Label = "identity"
	LabelMain     Label = "main"
	LabelShipping Label = "shipping"
	LabelCustomQR Label = "custom_qr"
)

// fabricationDateLayout is the day-first form printed on the identity label.
const fabricationDateLayout = "02/01/2006"

// FabricationDate renders the date printed on the identity label.
func FabricationDate(t time.Time) string {
	return t.Format(fabricationDateLayout)
}

// zplPreamble resets the device to a known media and darkness configuration
// before each label body.
const zplPreamble = `^XA
~TA000
~JSN
^LT0
^MNW
^MTT
^PON
^PMN
^LH0,0
^JMA
^PR4,4
~SD15
^JUS
^LRN
^CI27
^PA0,1,1,0
^XZ
`

// RenderIdentityLabel builds the ZPL for the unit identity label carrying
// the serial, its verification code, and the fabrication date.
func RenderIdentityLabel(serial, qrCode, fabricationDate string) []byte {
	body := fmt.Sprintf(`^XA
^MMT
^PW815
^LL400
^LS0
^FT50,70^A0N,50,50^FH\^CI28^FD%s^FS^CI27
^FT50,140^A0N,35,35^FH\^CI28^FDCode: %s^FS^CI27
^FT50,210^A0N,35,35^FH\^CI28^FDFab: %s^FS^CI27
^FO560,60
^BQN,2,8
^FH\^FDLA,%s^FS
^PQ1,0,1,Y
^XZ
`, serial, qrCode, fabricationDate, serial)
	return []byte(zplPreamble + body)
}

// RenderMainLabel builds the ZPL for the main enclosure label.
func RenderMainLabel(serial, qrCode string) []byte {
	body := fmt.Sprintf(`^XA
^MMT
^PW815
^LL300
^LS0
^FT50,90^A0N,60,60^FH\^CI28^FD%s^FS^CI27
^FT50,160^A0N,35,35^FH\^CI28^FD%s^FS^CI27
^FO560,30
^BQN,2,8
^FH\^FDLA,%s^FS
^PQ1,0,1,Y
^XZ
`, serial, qrCode, serial)
	return []byte(zplPreamble + body)
}

// RenderShippingLabel builds the ZPL for the carton shipping label.
func RenderShippingLabel(serial string) []byte {
	body := fmt.Sprintf(`^XA
^MMT
^PW815
^LL200
^LS0
^FT50,80^A0N,45,45^FH\^CI28^FDS/N: %s^FS^CI27
^BY3,3,80
^FT50,180^BCN,,N,N
^FH\^FD%s^FS
^PQ1,0,1,Y
^XZ
`, serial, serial)
	return []byte(zplPreamble + body)
}

// RenderCustomQRLabel builds the ZPL for an ad hoc QR label showing the
// display text alongside the encoded content.
func RenderCustomQRLabel(displayText, qrContent string) []byte {
	body := fmt.Sprintf(`^XA
^MMT
^PW815
^LL200
^LS0
^FT50,50^A0N,30,30^FH\^CI28^FDQR CODE:^FS^CI27
^FT50,90^A0N,40,40^FH\^CI28^FD%s^FS^CI27
^FO500,20
^BQN,2,8
^FH\^FDLA,%s^FS
^PQ1,0,1,Y
^XZ
`, displayText, qrContent)
	return []byte(zplPreamble + body)
}
