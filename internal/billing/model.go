package billing

import "time"

// RecordType is the constant partition key of the billings-by-date index.
const RecordType = "billing"

// BillItem is one line on a bill.
type BillItem struct {
	Name string  `dynamodbav:"itemName" json:"itemName"`
	Fee  float64 `dynamodbav:"fee" json:"fee"`
	Paid bool    `dynamodbav:"isPaid" json:"isPaid"`
}

// Billing mirrors the ledger's payment documents. Attribute names match the
// production collection (billingId, bills, billURL).
type Billing struct {
	BillingID     string     `dynamodbav:"billingId" json:"billingId"`
	RecordType    string     `dynamodbav:"recordType" json:"-"`
	Items         []BillItem `dynamodbav:"bills" json:"bills"`
	AppointmentID string     `dynamodbav:"appointmentId" json:"appointmentId"`
	PatientID     string     `dynamodbav:"patientId" json:"patientId"`
	DoctorID      string     `dynamodbav:"doctorId" json:"doctorId"`
	PaidAmt       float64    `dynamodbav:"paidAmt" json:"paidAmt"`
	InsuranceAmt  float64    `dynamodbav:"insuranceAmt" json:"insuranceAmt"`
	PaymentMode   string     `dynamodbav:"paymentMode" json:"paymentMode"`
	Date          time.Time  `dynamodbav:"date" json:"date"`
	BillingStatus string     `dynamodbav:"billingStatus" json:"billingStatus"`
	ArtifactURL   string     `dynamodbav:"billURL,omitempty" json:"billURL,omitempty"`
}

// Total is the full settled value of the bill.
func (b *Billing) Total() float64 {
	return b.PaidAmt + b.InsuranceAmt
}
