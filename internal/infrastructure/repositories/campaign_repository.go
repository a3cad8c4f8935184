package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// CampaignRepositoryImpl implements domain.CampaignRepository on the
// campaigns collection.
type CampaignRepositoryImpl struct {
	coll *mongo.Collection
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *mongo.Database) domain.CampaignRepository {
	return &CampaignRepositoryImpl{coll: db.Collection("campaigns")}
}

// Create implements domain.CampaignRepository.
func (r *CampaignRepositoryImpl) Create(ctx context.Context, campaign *domain.Campaign) error {
	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	if campaign.Status == "" {
		campaign.Status = domain.CampaignDraft
	}
	campaign.TotalRecipients = len(campaign.Recipients)

	_, err := r.coll.InsertOne(ctx, campaign)
	return err
}

// FindByID implements domain.CampaignRepository.
func (r *CampaignRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCampaignNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByIDForUser implements domain.CampaignRepository. Campaigns are owned
// exclusively by their creating user.
func (r *CampaignRepositoryImpl) FindByIDForUser(ctx context.Context, id, userID string) (*domain.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCampaignNotFound
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrCampaignNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "userId": uid})
}

func (r *CampaignRepositoryImpl) findOne(ctx context.Context, filter bson.M) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := r.coll.FindOne(ctx, filter).Decode(&campaign)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// ListByUser implements domain.CampaignRepository, newest first.
func (r *CampaignRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]domain.Campaign, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	campaigns := make([]domain.Campaign, 0)
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// Update implements domain.CampaignRepository.
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *domain.Campaign) error {
	campaign.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": campaign.ID}, campaign)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// UpdateStatus implements domain.CampaignRepository.
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCampaignNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// SetQueued implements domain.CampaignRepository.
func (r *CampaignRepositoryImpl) SetQueued(ctx context.Context, id, jobID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCampaignNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"status": domain.CampaignQueued, "jobId": jobID, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// ClaimForProcessing implements domain.CampaignRepository. The guarded
// find-and-modify is what prevents two dispatchers from double-processing
// the same campaign.
func (r *CampaignRepositoryImpl) ClaimForProcessing(ctx context.Context, id string, from ...domain.CampaignStatus) (*domain.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCampaignNotFound
	}
	if len(from) == 0 {
		from = []domain.CampaignStatus{domain.CampaignPending, domain.CampaignQueued}
	}

	filter := bson.M{"_id": oid, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": domain.CampaignProcessing, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var campaign domain.Campaign
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&campaign)
	if err == mongo.ErrNoDocuments {
		// Either the campaign is gone or another dispatcher claimed it.
		if _, findErr := r.findOne(ctx, bson.M{"_id": oid}); findErr != nil {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, domain.ErrCampaignNotPending
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// MarkFailed implements domain.CampaignRepository.
func (r *CampaignRepositoryImpl) MarkFailed(ctx context.Context, id, errMsg string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCampaignNotFound
	}
	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"status": domain.CampaignFailed, "error": errMsg, "updatedAt": time.Now()},
	})
	return err
}
