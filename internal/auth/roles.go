// Package auth provides authentication and authorization types.
package auth

// Role represents a user role in the system.
type Role string

// System roles - global scope
const (
	RoleAdmin   Role = "admin"   // Full platform access
	RoleAuditor Role = "auditor" // Read-only audit access
)

// Clinic roles - clinic scope
const (
	RoleClinicAdmin  Role = "clinic_admin" // Manage clinic staff, settings
	RoleClinician    Role = "clinician"    // Treat patients, view risk
	RoleFrontDesk    Role = "front_desk"   // Book appointments, send reminders
	RoleClinicViewer Role = "clinic_viewer" // Read-only clinic access
)

// Patient roles
const (
	RolePatient Role = "patient" // Authenticated patient portal access
)

// Permission represents a specific action on a resource.
type Permission string

// Patient permissions
const (
	PermPatientCreate Permission = "patient.create"
	PermPatientRead   Permission = "patient.read"
	PermPatientUpdate Permission = "patient.update"
	PermPatientDelete Permission = "patient.delete"
)

// Appointment permissions
const (
	PermAppointmentCreate Permission = "appointment.create"
	PermAppointmentRead   Permission = "appointment.read"
	PermAppointmentUpdate Permission = "appointment.update"
	PermAppointmentCancel Permission = "appointment.cancel"
)

// Reminder permissions
const (
	PermReminderRead   Permission = "reminder.read"
	PermReminderSend   Permission = "reminder.send"
	PermReminderCancel Permission = "reminder.cancel"
)

// Model and analytics permissions
const (
	PermModelTrain    Permission = "model.train"
	PermModelRead     Permission = "model.read"
	PermAnalyticsRead Permission = "analytics.read"
)

// Admin permissions
const (
	PermClinicCreate  Permission = "clinic.create"
	PermClinicUpdate  Permission = "clinic.update"
	PermClinicDelete  Permission = "clinic.delete"
	PermAuditRead     Permission = "audit.read"
	PermAuditExport   Permission = "audit.export"
	PermSensitiveData Permission = "sensitive_data_access"
)

// RolePermissions maps roles to their default permissions.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermPatientCreate, PermPatientRead, PermPatientUpdate, PermPatientDelete,
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentCancel,
		PermReminderRead, PermReminderSend, PermReminderCancel,
		PermModelTrain, PermModelRead, PermAnalyticsRead,
		PermClinicCreate, PermClinicUpdate, PermClinicDelete,
		PermAuditRead, PermAuditExport, PermSensitiveData,
	},
	RoleClinicAdmin: {
		PermPatientCreate, PermPatientRead, PermPatientUpdate, PermPatientDelete,
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentCancel,
		PermReminderRead, PermReminderSend, PermReminderCancel,
		PermModelRead, PermAnalyticsRead,
		PermClinicUpdate,
	},
	RoleClinician: {
		PermPatientRead, PermPatientUpdate,
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentCancel,
		PermReminderRead, PermModelRead, PermAnalyticsRead,
		PermSensitiveData,
	},
	RoleFrontDesk: {
		PermPatientCreate, PermPatientRead,
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentCancel,
		PermReminderRead, PermReminderSend, PermReminderCancel,
	},
	RoleClinicViewer: {
		PermPatientRead, PermAppointmentRead, PermReminderRead,
	},
	RoleAuditor: {
		PermAuditRead, PermAuditExport,
	},
	RolePatient: {
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentCancel,
	},
}

// DataClassification represents data sensitivity levels.
type DataClassification int

const (
	DataPublic       DataClassification = 0 // Clinic contact info
	DataInternal     DataClassification = 1 // Appointment statistics
	DataConfidential DataClassification = 2 // Appointment details
	DataRestricted   DataClassification = 3 // Medical notes, risk scores
)

// HasPermission checks if a role has a specific permission.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the user has any of the specified roles.
func HasAnyRole(userRoles []Role, requiredRoles ...Role) bool {
	for _, ur := range userRoles {
		for _, rr := range requiredRoles {
			if ur == rr {
				return true
			}
		}
	}
	return false
}
