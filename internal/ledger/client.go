package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/carehub-health/billing-core/internal/appointments"
	"github.com/carehub-health/billing-core/internal/billing"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// Index names expected on the ledger tables.
const (
	patientIndex = "patientId-index"
	byDateIndex  = "billings-by-date"
)

// Sentinel errors for ledger outcomes. Transport failures always wrap
// ErrUnavailable so callers can distinguish connectivity from logical misses.
var (
	ErrNotFound      = errors.New("ledger: document not found")
	ErrAlreadyExists = errors.New("ledger: document already exists")
	ErrUnavailable   = errors.New("ledger: remote unavailable")
)

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Tables names the ledger collections.
type Tables struct {
	Appointments string
	Billings     string
	Doctors      string
	Patients     string
}

// DoctorRecord mirrors the staff directory's doctor documents.
type DoctorRecord struct {
	ID              string   `dynamodbav:"docId"`
	Name            string   `dynamodbav:"Doctor_name"`
	Department      string   `dynamodbav:"Department"`
	ConsultationFee *float64 `dynamodbav:"consultationFee,omitempty"`
}

// PatientRecord mirrors the patient documents; the display name lives under
// userData.Name.
type PatientRecord struct {
	ID       string `dynamodbav:"patientId"`
	UserData struct {
		Name string `dynamodbav:"Name"`
	} `dynamodbav:"userData"`
}

// Client is a typed document-store client over DynamoDB.
type Client struct {
	db     dynamoAPI
	tables Tables
	logger *logging.Logger
}

// NewClient builds a ledger client.
func NewClient(db dynamoAPI, tables Tables, logger *logging.Logger) *Client {
	if db == nil {
		panic("ledger: dynamodb client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{db: db, tables: tables, logger: logger}
}

// AppointmentsByPatient queries the patientId index. Malformed documents are
// logged and skipped, never returned.
func (c *Client) AppointmentsByPatient(ctx context.Context, patientID string) ([]appointments.Appointment, error) {
	out, err := c.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tables.Appointments),
		IndexName:              aws.String(patientIndex),
		KeyConditionExpression: aws.String("patientId = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: patientID},
		},
	})
	if err != nil {
		return nil, c.unavailable("query appointments by patient", err)
	}
	return c.decodeAppointments(out.Items), nil
}

// AppointmentsForDay scans for appointments dated on the given day. Dates are
// stored as RFC3339 strings, so a begins_with on the day prefix matches the
// whole day regardless of time of day.
func (c *Client) AppointmentsForDay(ctx context.Context, day time.Time) ([]appointments.Appointment, error) {
	out, err := c.db.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(c.tables.Appointments),
		FilterExpression: aws.String("begins_with(#d, :day)"),
		ExpressionAttributeNames: map[string]string{
			"#d": "date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":day": &types.AttributeValueMemberS{Value: day.UTC().Format("2006-01-02")},
		},
	})
	if err != nil {
		return nil, c.unavailable("scan appointments for day", err)
	}
	return c.decodeAppointments(out.Items), nil
}

// MarkAppointmentPaid flips the remote billingStatus flag and records the
// derived amount. The condition makes updating an unknown id a NotFound.
func (c *Client) MarkAppointmentPaid(ctx context.Context, appointmentID string, amount float64) error {
	_, err := c.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tables.Appointments),
		Key: map[string]types.AttributeValue{
			"apptId": &types.AttributeValueMemberS{Value: appointmentID},
		},
		UpdateExpression: aws.String("SET billingStatus = :paid, amount = :amount"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":paid":   &types.AttributeValueMemberS{Value: appointments.BillingPaid},
			":amount": &types.AttributeValueMemberN{Value: formatAmount(amount)},
		},
		ConditionExpression: aws.String("attribute_exists(apptId)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("ledger: appointment %s: %w", appointmentID, ErrNotFound)
		}
		return c.unavailable("mark appointment paid", err)
	}
	return nil
}

// PutAppointment writes an appointment document. Used by seeding; the
// scheduling workflow owns appointment creation in production.
func (c *Client) PutAppointment(ctx context.Context, appt *appointments.Appointment) error {
	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		return fmt.Errorf("ledger: marshal appointment: %w", err)
	}
	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tables.Appointments),
		Item:      item,
	})
	if err != nil {
		return c.unavailable("put appointment", err)
	}
	return nil
}

// Doctor fetches a staff directory doctor document.
func (c *Client) Doctor(ctx context.Context, doctorID string) (*DoctorRecord, error) {
	out, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tables.Doctors),
		Key: map[string]types.AttributeValue{
			"docId": &types.AttributeValueMemberS{Value: doctorID},
		},
	})
	if err != nil {
		return nil, c.unavailable("get doctor", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("ledger: doctor %s: %w", doctorID, ErrNotFound)
	}
	var doc DoctorRecord
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, fmt.Errorf("ledger: decode doctor %s: %w", doctorID, err)
	}
	return &doc, nil
}

// Patient fetches a patient document.
func (c *Client) Patient(ctx context.Context, patientID string) (*PatientRecord, error) {
	out, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tables.Patients),
		Key: map[string]types.AttributeValue{
			"patientId": &types.AttributeValueMemberS{Value: patientID},
		},
	})
	if err != nil {
		return nil, c.unavailable("get patient", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("ledger: patient %s: %w", patientID, ErrNotFound)
	}
	var pat PatientRecord
	if err := attributevalue.UnmarshalMap(out.Item, &pat); err != nil {
		return nil, fmt.Errorf("ledger: decode patient %s: %w", patientID, err)
	}
	return &pat, nil
}

// PatientName returns the display name stored on a patient document.
func (c *Client) PatientName(ctx context.Context, patientID string) (string, error) {
	pat, err := c.Patient(ctx, patientID)
	if err != nil {
		return "", err
	}
	return pat.UserData.Name, nil
}

// DoctorProfile returns the display name and department of a doctor.
func (c *Client) DoctorProfile(ctx context.Context, doctorID string) (name, department string, err error) {
	doc, err := c.Doctor(ctx, doctorID)
	if err != nil {
		return "", "", err
	}
	return doc.Name, doc.Department, nil
}

// ConsultationFee looks up a doctor's configured fee. The boolean is false
// when the doctor document is missing or the fee field is absent or
// non-numeric; transport failures are returned as errors.
func (c *Client) ConsultationFee(ctx context.Context, doctorID string) (float64, bool, error) {
	out, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tables.Doctors),
		Key: map[string]types.AttributeValue{
			"docId": &types.AttributeValueMemberS{Value: doctorID},
		},
	})
	if err != nil {
		return 0, false, c.unavailable("get doctor", err)
	}
	if out.Item == nil {
		return 0, false, nil
	}
	attr, ok := out.Item["consultationFee"]
	if !ok {
		return 0, false, nil
	}

	// The fee attribute is decoded on its own: a corrupt value degrades to
	// fee-not-found instead of failing the whole document.
	var fee float64
	if err := attributevalue.Unmarshal(attr, &fee); err != nil {
		var typeErr *attributevalue.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			c.logger.Warn("non-numeric consultationFee on doctor document", "doctor_id", doctorID)
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("ledger: decode consultation fee for doctor %s: %w", doctorID, err)
	}
	return fee, true, nil
}

// PutDoctor writes a doctor document. Seeding only.
func (c *Client) PutDoctor(ctx context.Context, doc *DoctorRecord) error {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("ledger: marshal doctor: %w", err)
	}
	if _, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tables.Doctors),
		Item:      item,
	}); err != nil {
		return c.unavailable("put doctor", err)
	}
	return nil
}

// PutPatient writes a patient document. Seeding only.
func (c *Client) PutPatient(ctx context.Context, pat *PatientRecord) error {
	item, err := attributevalue.MarshalMap(pat)
	if err != nil {
		return fmt.Errorf("ledger: marshal patient: %w", err)
	}
	if _, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tables.Patients),
		Item:      item,
	}); err != nil {
		return c.unavailable("put patient", err)
	}
	return nil
}

// PutBilling creates a billing record. A duplicate billingId is rejected by
// the condition expression.
func (c *Client) PutBilling(ctx context.Context, b *billing.Billing) error {
	item, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("ledger: marshal billing: %w", err)
	}
	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tables.Billings),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(billingId)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("ledger: billing %s: %w", b.BillingID, ErrAlreadyExists)
		}
		return c.unavailable("put billing", err)
	}
	return nil
}

// BillingByID fetches one billing record.
func (c *Client) BillingByID(ctx context.Context, billingID string) (*billing.Billing, error) {
	out, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tables.Billings),
		Key: map[string]types.AttributeValue{
			"billingId": &types.AttributeValueMemberS{Value: billingID},
		},
	})
	if err != nil {
		return nil, c.unavailable("get billing", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("ledger: billing %s: %w", billingID, ErrNotFound)
	}
	var b billing.Billing
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, fmt.Errorf("ledger: decode billing %s: %w", billingID, err)
	}
	return &b, nil
}

// BillingsByDate lists billing records newest-first via the by-date index.
func (c *Client) BillingsByDate(ctx context.Context, limit int) ([]billing.Billing, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tables.Billings),
		IndexName:              aws.String(byDateIndex),
		KeyConditionExpression: aws.String("recordType = :rt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rt": &types.AttributeValueMemberS{Value: billing.RecordType},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	out, err := c.db.Query(ctx, in)
	if err != nil {
		return nil, c.unavailable("query billings by date", err)
	}

	bills := make([]billing.Billing, 0, len(out.Items))
	for _, item := range out.Items {
		var b billing.Billing
		if err := attributevalue.UnmarshalMap(item, &b); err != nil {
			c.logger.Warn("skipping malformed billing document", "error", err)
			continue
		}
		bills = append(bills, b)
	}
	return bills, nil
}

// SetBillingArtifactURL merge-writes the artifact handle onto a billing
// record without touching any other field.
func (c *Client) SetBillingArtifactURL(ctx context.Context, billingID, url string) error {
	_, err := c.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tables.Billings),
		Key: map[string]types.AttributeValue{
			"billingId": &types.AttributeValueMemberS{Value: billingID},
		},
		UpdateExpression: aws.String("SET billURL = :url"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":url": &types.AttributeValueMemberS{Value: url},
		},
		ConditionExpression: aws.String("attribute_exists(billingId)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("ledger: billing %s: %w", billingID, ErrNotFound)
		}
		return c.unavailable("set billing artifact url", err)
	}
	return nil
}

func (c *Client) decodeAppointments(items []map[string]types.AttributeValue) []appointments.Appointment {
	appts := make([]appointments.Appointment, 0, len(items))
	for _, item := range items {
		var a appointments.Appointment
		if err := attributevalue.UnmarshalMap(item, &a); err != nil {
			c.logger.Warn("skipping undecodable appointment document", "error", err)
			continue
		}
		if err := a.Validate(); err != nil {
			c.logger.Warn("skipping malformed appointment document", "reason", err.Error())
			continue
		}
		appts = append(appts, a)
	}
	return appts
}

func (c *Client) unavailable(op string, err error) error {
	return fmt.Errorf("ledger: %s: %w: %w", op, ErrUnavailable, err)
}

func isConditionFailure(err error) bool {
	var cond *types.ConditionalCheckFailedException
	return errors.As(err, &cond)
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%g", amount)
}
