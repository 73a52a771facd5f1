package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
)

// MockScienceFieldRepo is a mock implementation of ScienceFieldRepo
type MockScienceFieldRepo struct {
	mock.Mock
}

func (m *MockScienceFieldRepo) List(ctx context.Context) ([]*model.ScienceField, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScienceField), args.Error(1)
}

func (m *MockScienceFieldRepo) Create(ctx context.Context, f *model.ScienceField) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockScienceFieldRepo) GetByNames(ctx context.Context, names []string) ([]model.ScienceField, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScienceField), args.Error(1)
}

func (m *MockScienceFieldRepo) EnsureNames(ctx context.Context, names []string) (int64, error) {
	args := m.Called(ctx, names)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScienceFieldRepo) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFundingSourceRepo is a mock implementation of FundingSourceRepo
type MockFundingSourceRepo struct {
	mock.Mock
}

func (m *MockFundingSourceRepo) Create(ctx context.Context, f *model.FundingSource) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFundingSourceRepo) List(ctx context.Context, search string) ([]*model.FundingSource, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FundingSource), args.Error(1)
}

func (m *MockFundingSourceRepo) GetByIDs(ctx context.Context, ids []uint) ([]model.FundingSource, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FundingSource), args.Error(1)
}

func (m *MockFundingSourceRepo) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestCatalogService_CreateScienceField(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		input     string
		setup     func(*MockScienceFieldRepo)
		wantErr   error
		wantField bool
	}{
		{
			name:  "created",
			input: " Ecology ",
			setup: func(r *MockScienceFieldRepo) {
				r.On("Create", ctx, &model.ScienceField{Name: "Ecology"}).Return(nil)
			},
		},
		{
			name:      "blank",
			input:     " ",
			setup:     func(r *MockScienceFieldRepo) {},
			wantField: true,
		},
		{
			name:      "too long",
			input:     strings.Repeat("x", 51),
			setup:     func(r *MockScienceFieldRepo) {},
			wantField: true,
		},
		{
			name:  "duplicate",
			input: "Ecology",
			setup: func(r *MockScienceFieldRepo) {
				r.On("Create", ctx, mock.Anything).Return(gorm.ErrDuplicatedKey)
			},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockScienceFieldRepo{}
			tt.setup(r)
			forms := &MockFormInvalidator{}
			forms.On("Invalidate", ctx).Return()
			svc := NewCatalogService(r, &MockFundingSourceRepo{}, forms)

			f, err := svc.CreateScienceField(ctx, tt.input)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantField:
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, "name")
			default:
				require.NoError(t, err)
				assert.Equal(t, "Ecology", f.Name)
				forms.AssertCalled(t, "Invalidate", ctx)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestCatalogService_SeedScienceFields(t *testing.T) {
	ctx := context.Background()

	r := &MockScienceFieldRepo{}
	r.On("EnsureNames", ctx, []string{"Ecology", "Geology"}).Return(int64(1), nil).Once()
	r.On("EnsureNames", ctx, []string{"Ecology"}).Return(int64(0), nil).Once()
	forms := &MockFormInvalidator{}
	forms.On("Invalidate", ctx).Return()
	svc := NewCatalogService(r, &MockFundingSourceRepo{}, forms)

	n, err := svc.SeedScienceFields(ctx, []string{"Ecology", " ", "Geology", "Ecology "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.SeedScienceFields(ctx, []string{"Ecology"})
	require.NoError(t, err)
	assert.Zero(t, n)

	forms.AssertNumberOfCalls(t, "Invalidate", 1)
}

func TestCatalogService_FundingSources(t *testing.T) {
	ctx := context.Background()

	r := &MockFundingSourceRepo{}
	r.On("Create", ctx, &model.FundingSource{Source: "NSF", GrantNumber: "123"}).Return(nil)
	r.On("Delete", ctx, uint(4)).Return(gorm.ErrRecordNotFound)
	forms := &MockFormInvalidator{}
	forms.On("Invalidate", ctx).Return()
	svc := NewCatalogService(&MockScienceFieldRepo{}, r, forms)

	f, err := svc.CreateFundingSource(ctx, CreateFundingSourceInput{Source: " NSF", GrantNumber: "123 "})
	require.NoError(t, err)
	assert.Equal(t, "NSF (123)", f.Display())

	_, err = svc.CreateFundingSource(ctx, CreateFundingSourceInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	assert.ErrorIs(t, svc.DeleteFundingSource(ctx, 4), ErrNotFound)
	forms.AssertNumberOfCalls(t, "Invalidate", 1)
}
