package exchange

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
)

const (
	daySeconds  = 86400
	hourSeconds = 3600

	// hour buckets older than this many hours drop out of a token's hour array
	hourArchiveHorizon = 768
)

// updateBuckets refreshes the day and hour aggregates touched by an event. Swaps pass their volumes,
// other events pass nil.
func (s *Subgraph) updateBuckets(ev *EventBase, pair *entity.Pair, factory *entity.Factory, bundle *entity.Bundle, token0, token1 *entity.Token, volumes *swapVolumes) error {
	timestamp := ev.Block.Timestamp.Unix()

	pairDayData, err := s.UpdatePairDayData(pair, timestamp)
	if err != nil {
		return err
	}

	pairHourData, err := s.UpdatePairHourData(pair, timestamp)
	if err != nil {
		return err
	}

	uniswapDayData, err := s.UpdateUniswapDayData(factory, timestamp)
	if err != nil {
		return err
	}

	token0DayData, err := s.UpdateTokenDayData(token0, bundle, timestamp)
	if err != nil {
		return err
	}

	token1DayData, err := s.UpdateTokenDayData(token1, bundle, timestamp)
	if err != nil {
		return err
	}

	token0HourData, err := s.UpdateTokenHourData(token0, bundle, timestamp)
	if err != nil {
		return err
	}

	token1HourData, err := s.UpdateTokenHourData(token1, bundle, timestamp)
	if err != nil {
		return err
	}

	if volumes == nil {
		return nil
	}

	// swap specific updating
	uniswapDayData.DailyVolumeUSD = uniswapDayData.DailyVolumeUSD.Add(volumes.trackedUSD)
	uniswapDayData.DailyVolumeETH = uniswapDayData.DailyVolumeETH.Add(volumes.trackedETH)
	uniswapDayData.DailyVolumeUntracked = uniswapDayData.DailyVolumeUntracked.Add(volumes.derivedUSD)
	s.Save(uniswapDayData)

	// swap specific updating for pair
	pairDayData.DailyVolumeToken0 = pairDayData.DailyVolumeToken0.Add(volumes.amount0Total)
	pairDayData.DailyVolumeToken1 = pairDayData.DailyVolumeToken1.Add(volumes.amount1Total)
	pairDayData.DailyVolumeUSD = pairDayData.DailyVolumeUSD.Add(volumes.trackedUSD)
	s.Save(pairDayData)

	// update hourly pair data
	pairHourData.HourlyVolumeToken0 = pairHourData.HourlyVolumeToken0.Add(volumes.amount0Total)
	pairHourData.HourlyVolumeToken1 = pairHourData.HourlyVolumeToken1.Add(volumes.amount1Total)
	pairHourData.HourlyVolumeUSD = pairHourData.HourlyVolumeUSD.Add(volumes.trackedUSD)
	s.Save(pairHourData)

	// swap specific updating for tokens
	s.addTokenDayVolume(token0DayData, token0, bundle, volumes.amount0Total)
	s.addTokenDayVolume(token1DayData, token1, bundle, volumes.amount1Total)

	s.addTokenHourVolume(token0HourData, volumes.amount0Total, volumes, volumes.fees0USD)
	s.addTokenHourVolume(token1HourData, volumes.amount1Total, volumes, volumes.fees1USD)

	return nil
}

func (s *Subgraph) addTokenDayVolume(dayData *entity.TokenDayData, token *entity.Token, bundle *entity.Bundle, amount decimal.Decimal) {
	volumeETH := amount.Mul(token.DerivedETH)
	dayData.DailyVolumeToken = dayData.DailyVolumeToken.Add(amount)
	dayData.DailyVolumeETH = dayData.DailyVolumeETH.Add(volumeETH)
	dayData.DailyVolumeUSD = dayData.DailyVolumeUSD.Add(volumeETH.Mul(bundle.EthPrice))
	s.Save(dayData)
}

func (s *Subgraph) addTokenHourVolume(hourData *entity.TokenHourData, amount decimal.Decimal, volumes *swapVolumes, feesUSD decimal.Decimal) {
	hourData.Volume = hourData.Volume.Add(amount)
	hourData.VolumeUSD = hourData.VolumeUSD.Add(volumes.trackedUSD)
	hourData.UntrackedVolumeUSD = hourData.UntrackedVolumeUSD.Add(volumes.derivedUSD)
	hourData.FeesUSD = hourData.FeesUSD.Add(feesUSD)
	s.Save(hourData)
}

func (s *Subgraph) UpdateUniswapDayData(factory *entity.Factory, timestamp int64) (*entity.UniswapDayData, error) {
	dayID := timestamp / daySeconds
	dayStartTimestamp := dayID * daySeconds

	uniswapDayData := &entity.UniswapDayData{Base: entity.Base{ID: strconv.FormatInt(dayID, 10)}}
	if err := s.Load(uniswapDayData); err != nil {
		return nil, fmt.Errorf("loading uniswap_day_data %s: %w", uniswapDayData.ID, err)
	}

	if !uniswapDayData.Exists() {
		uniswapDayData.Date = dayStartTimestamp
	}

	uniswapDayData.TotalVolumeUSD = factory.TotalVolumeUSD
	uniswapDayData.TotalVolumeETH = factory.TotalVolumeETH
	uniswapDayData.TotalLiquidityUSD = factory.TotalLiquidityUSD
	uniswapDayData.TotalLiquidityETH = factory.TotalLiquidityETH
	uniswapDayData.TxCount = factory.TxCount

	s.Save(uniswapDayData)

	return uniswapDayData, nil
}

func (s *Subgraph) UpdatePairDayData(pair *entity.Pair, timestamp int64) (*entity.PairDayData, error) {
	dayID := timestamp / daySeconds
	dayStartTimestamp := dayID * daySeconds

	pairDayData := &entity.PairDayData{Base: entity.Base{ID: entity.BucketID(pair.ID, dayID)}}
	if err := s.Load(pairDayData); err != nil {
		return nil, fmt.Errorf("loading pair_day_data %s: %w", pairDayData.ID, err)
	}

	if !pairDayData.Exists() {
		pairDayData.Date = dayStartTimestamp
		pairDayData.Token0 = pair.Token0
		pairDayData.Token1 = pair.Token1
		pairDayData.PairAddress = pair.ID
	}

	pairDayData.TotalSupply = pair.TotalSupply
	pairDayData.Reserve0 = pair.Reserve0
	pairDayData.Reserve1 = pair.Reserve1
	pairDayData.ReserveUSD = pair.ReserveUSD
	pairDayData.DailyTxns++

	s.Save(pairDayData)

	return pairDayData, nil
}

func (s *Subgraph) UpdatePairHourData(pair *entity.Pair, timestamp int64) (*entity.PairHourData, error) {
	hourIndex := timestamp / hourSeconds
	hourStartUnix := hourIndex * hourSeconds

	pairHourData := &entity.PairHourData{Base: entity.Base{ID: entity.BucketID(pair.ID, hourIndex)}}
	if err := s.Load(pairHourData); err != nil {
		return nil, fmt.Errorf("loading pair_hour_data %s: %w", pairHourData.ID, err)
	}

	if !pairHourData.Exists() {
		pairHourData.HourStartUnix = hourStartUnix
		pairHourData.Pair = pair.ID
	}

	pairHourData.TotalSupply = pair.TotalSupply
	pairHourData.Reserve0 = pair.Reserve0
	pairHourData.Reserve1 = pair.Reserve1
	pairHourData.ReserveUSD = pair.ReserveUSD
	pairHourData.HourlyTxns++

	s.Save(pairHourData)

	return pairHourData, nil
}

func (s *Subgraph) UpdateTokenDayData(token *entity.Token, bundle *entity.Bundle, timestamp int64) (*entity.TokenDayData, error) {
	dayID := timestamp / daySeconds
	dayStartTimestamp := dayID * daySeconds

	tokenDayData := &entity.TokenDayData{Base: entity.Base{ID: entity.BucketID(token.ID, dayID)}}
	if err := s.Load(tokenDayData); err != nil {
		return nil, fmt.Errorf("loading token_day_data %s: %w", tokenDayData.ID, err)
	}

	if !tokenDayData.Exists() {
		tokenDayData.Date = dayStartTimestamp
		tokenDayData.Token = token.ID
	}

	tokenDayData.PriceUSD = token.DerivedETH.Mul(bundle.EthPrice)
	tokenDayData.TotalLiquidityToken = token.TotalLiquidity
	tokenDayData.TotalLiquidityETH = token.TotalLiquidity.Mul(token.DerivedETH)
	tokenDayData.TotalLiquidityUSD = tokenDayData.TotalLiquidityETH.Mul(bundle.EthPrice)
	tokenDayData.DailyTxns++

	s.Save(tokenDayData)

	return tokenDayData, nil
}

// UpdateTokenHourData refreshes the token's hour bucket and its OHLC price, and maintains the token's
// hour array. The token is saved.
func (s *Subgraph) UpdateTokenHourData(token *entity.Token, bundle *entity.Bundle, timestamp int64) (*entity.TokenHourData, error) {
	hourIndex := timestamp / hourSeconds
	hourStartUnix := hourIndex * hourSeconds
	tokenPrice := token.DerivedETH.Mul(bundle.EthPrice)

	tokenHourData := &entity.TokenHourData{Base: entity.Base{ID: entity.BucketID(token.ID, hourIndex)}}
	if err := s.Load(tokenHourData); err != nil {
		return nil, fmt.Errorf("loading token_hour_data %s: %w", tokenHourData.ID, err)
	}

	isNew := !tokenHourData.Exists()
	if isNew {
		tokenHourData.PeriodStartUnix = hourStartUnix
		tokenHourData.Token = token.ID
		tokenHourData.OpenPrice = tokenPrice
		tokenHourData.HighPrice = tokenPrice
		tokenHourData.LowPrice = tokenPrice

		token.HourArray = append(token.HourArray, hourIndex)
	}

	if tokenPrice.GreaterThan(tokenHourData.HighPrice) {
		tokenHourData.HighPrice = tokenPrice
	}
	if tokenPrice.LessThan(tokenHourData.LowPrice) {
		tokenHourData.LowPrice = tokenPrice
	}
	tokenHourData.ClosePrice = tokenPrice
	tokenHourData.PriceUSD = tokenPrice
	tokenHourData.TotalValueLocked = token.TotalLiquidity
	tokenHourData.TotalValueLockedUSD = token.TotalLiquidity.Mul(tokenPrice)

	s.Save(tokenHourData)

	if token.LastHourArchived == 0 && token.LastHourRecorded == 0 {
		token.LastHourRecorded = hourIndex
		token.LastHourArchived = hourIndex - 1
	}

	if isNew {
		if stop := hourIndex - hourArchiveHorizon; stop > token.LastHourArchived {
			archiveHourData(token, stop)
		}
		token.LastHourRecorded = hourIndex
	}

	s.Save(token)

	return tokenHourData, nil
}

// archiveHourData drops the hour indices at or before stop.
func archiveHourData(token *entity.Token, stop int64) {
	kept := token.HourArray[:0]
	for _, hour := range token.HourArray {
		if hour > stop {
			kept = append(kept, hour)
		}
	}
	token.HourArray = kept
	token.LastHourArchived = stop
}
