// Package account implements the chart-of-accounts rules: immutable identity fields,
// editable descriptive fields, soft-deletes, unique codes and paths per org, and the
// system accounts that document posting depends on.
package account

import (
    "context"
    "fmt"
    "strings"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/chart"
    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
    "github.com/tinoosan/bizbooks/internal/slug"
)

type Repo interface {
    ListAccounts(ctx context.Context, orgID uuid.UUID) ([]ledger.Account, error)
    GetAccount(ctx context.Context, orgID, accountID uuid.UUID) (ledger.Account, error)
}

type Writer interface {
    CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
    UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

type Service interface {
    ValidateCreate(a ledger.Account) error
    Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
    List(ctx context.Context, orgID uuid.UUID) ([]ledger.Account, error)
    Get(ctx context.Context, orgID, accountID uuid.UUID) (ledger.Account, error)
    Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
    Deactivate(ctx context.Context, orgID, accountID uuid.UUID) error
    EnsureSystemAccounts(ctx context.Context, orgID uuid.UUID, currency string) (map[ledger.AccountRole]ledger.Account, error)
}

type service struct {
    repo   Repo
    writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

var (
    // ErrCodeExists indicates the account code is taken within the org and currency.
    ErrCodeExists = fmt.Errorf("%w: account code already exists", errs.ErrConflict)
    // ErrPathExists indicates an account with the same type, group and name already exists.
    ErrPathExists = fmt.Errorf("%w: account path already exists", errs.ErrConflict)
)

func (s *service) ValidateCreate(a ledger.Account) error {
    if a.OrgID == uuid.Nil {
        return errs.ErrInvalid
    }
    ve := &errs.ValidationError{}
    switch code := strings.TrimSpace(a.Code); {
    case code == "":
        ve.AddField("code", "code is required")
    case !a.System && chart.IsSystemCode(code):
        ve.AddField("code", "code "+code+" is reserved for the system chart")
    }
    if strings.TrimSpace(a.Name) == "" {
        ve.AddField("name", "name is required")
    }
    if a.Currency == "" {
        ve.AddField("currency", "currency is required")
    } else if !ledger.SupportedCurrency(a.Currency) {
        ve.AddField("currency", "unsupported currency "+a.Currency)
    }
    if !a.Type.Valid() {
        ve.AddField("type", "type must be asset, liability, equity, revenue or expense")
    }
    switch {
    case a.Group == "":
        ve.AddField("group", "group is required")
    case !slug.IsSlug(strings.ToLower(a.Group)):
        ve.AddField("group", "group must match "+slug.Pattern)
    case a.System:
        def, ok := chart.ForRole(a.Role)
        if !ok || def.Type != a.Type || def.Group != strings.ToLower(a.Group) {
            ve.AddField("role", "system account does not match the default chart")
        }
    case chart.IsReserved(a.Type, strings.ToLower(a.Group)):
        ve.AddField("group", "group "+a.Group+" is reserved for system accounts")
    }
    if !a.System && a.Role != ledger.RoleNone {
        ve.AddField("role", "role is reserved for system accounts")
    }
    if err := a.Metadata.Validate(); err != nil {
        if fe, ok := err.(errs.FieldError); ok {
            ve.Fields = append(ve.Fields, fe)
        } else {
            return err
        }
    }
    return ve.OrNil()
}

func (s *service) Create(ctx context.Context, account ledger.Account) (ledger.Account, error) {
    account = normalize(account)
    if err := s.ValidateCreate(account); err != nil {
        return ledger.Account{}, err
    }
    existing, err := s.repo.ListAccounts(ctx, account.OrgID)
    if err != nil {
        return ledger.Account{}, err
    }
    if err := checkUnique(existing, account); err != nil {
        return ledger.Account{}, err
    }
    account.ID = uuid.New()
    account.Active = true
    if account.Metadata == nil { account.Metadata = meta.New(nil) }
    return s.writer.CreateAccount(ctx, account)
}

func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]ledger.Account, error) {
    if orgID == uuid.Nil {
        return nil, errs.ErrInvalid
    }
    return s.repo.ListAccounts(ctx, orgID)
}

func (s *service) Get(ctx context.Context, orgID, accountID uuid.UUID) (ledger.Account, error) {
    if orgID == uuid.Nil || accountID == uuid.Nil {
        return ledger.Account{}, errs.ErrInvalid
    }
    return s.repo.GetAccount(ctx, orgID, accountID)
}

// Update applies allowed changes to name, group and metadata using a complete domain account.
func (s *service) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    if a.OrgID == uuid.Nil || a.ID == uuid.Nil {
        return ledger.Account{}, errs.ErrInvalid
    }
    a = normalize(a)
    current, err := s.repo.GetAccount(ctx, a.OrgID, a.ID)
    if err != nil { return ledger.Account{}, err }
    if current.System {
        return ledger.Account{}, errs.ErrSystemAccount
    }
    if current.Type != a.Type || current.Currency != a.Currency || current.Code != a.Code {
        return ledger.Account{}, errs.ErrImmutable
    }
    if a.System != current.System || a.Role != current.Role { return ledger.Account{}, errs.ErrImmutable }
    if err := s.ValidateCreate(a); err != nil {
        return ledger.Account{}, err
    }
    if current.Group != a.Group || current.Name != a.Name {
        existing, err := s.repo.ListAccounts(ctx, a.OrgID)
        if err != nil { return ledger.Account{}, err }
        if err := checkUnique(existing, a); err != nil {
            return ledger.Account{}, err
        }
    }
    a.Active = current.Active
    return s.writer.UpdateAccount(ctx, a)
}

// Deactivate sets Active=false (soft delete). System accounts cannot be deactivated.
func (s *service) Deactivate(ctx context.Context, orgID, accountID uuid.UUID) error {
    if orgID == uuid.Nil || accountID == uuid.Nil {
        return errs.ErrInvalid
    }
    acc, err := s.repo.GetAccount(ctx, orgID, accountID)
    if err != nil { return err }
    if acc.System {
        return errs.ErrSystemAccount
    }
    if !acc.Active { return nil }
    acc.Active = false
    _, err = s.writer.UpdateAccount(ctx, acc)
    return err
}

// EnsureSystemAccounts returns the default chart for the currency keyed by role,
// creating whatever is missing. It is idempotent per (org, currency).
func (s *service) EnsureSystemAccounts(ctx context.Context, orgID uuid.UUID, currency string) (map[ledger.AccountRole]ledger.Account, error) {
    currency = strings.ToUpper(strings.TrimSpace(currency))
    if orgID == uuid.Nil || !ledger.SupportedCurrency(currency) {
        return nil, errs.ErrInvalid
    }
    existing, err := s.repo.ListAccounts(ctx, orgID)
    if err != nil { return nil, err }
    out := make(map[ledger.AccountRole]ledger.Account, len(chart.Defaults))
    for _, a := range existing {
        if a.System && a.Currency == currency && a.Role != ledger.RoleNone {
            out[a.Role] = a
        }
    }
    for _, def := range chart.Defaults {
        if _, ok := out[def.Role]; ok {
            continue
        }
        a := ledger.Account{
            ID:       uuid.New(),
            OrgID:    orgID,
            Code:     def.Code,
            Name:     def.Name,
            Currency: currency,
            Type:     def.Type,
            Group:    def.Group,
            Role:     def.Role,
            Metadata: meta.New(nil),
            System:   true,
            Active:   true,
        }
        if err := s.ValidateCreate(a); err != nil { return nil, err }
        created, err := s.writer.CreateAccount(ctx, a)
        if err != nil { return nil, err }
        out[def.Role] = created
    }
    return out, nil
}

func normalize(a ledger.Account) ledger.Account {
    a.Code = strings.TrimSpace(a.Code)
    a.Name = strings.TrimSpace(a.Name)
    a.Group = strings.ToLower(strings.TrimSpace(a.Group))
    a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
    return a
}

// normalizedPath is the uniqueness key within a currency: type:group:slug(name).
func normalizedPath(a ledger.Account) string {
    return strings.ToLower(string(a.Type)) + ":" + strings.ToLower(a.Group) + ":" + slug.Slugify(a.Name)
}

// checkUnique rejects a clash on code or path with another account in the same currency.
func checkUnique(existing []ledger.Account, a ledger.Account) error {
    desired := normalizedPath(a)
    for _, other := range existing {
        if other.ID == a.ID || !strings.EqualFold(other.Currency, a.Currency) {
            continue
        }
        if strings.EqualFold(other.Code, a.Code) {
            return ErrCodeExists
        }
        if normalizedPath(other) == desired {
            return ErrPathExists
        }
    }
    return nil
}
