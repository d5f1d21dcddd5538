package vrft

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/sim"
	"github.com/san-kum/vrft/internal/tf"
)

const dt = 0.01

var (
	plant = tf.Must([]float64{0.5}, []float64{1, -0.3}, dt)
	model = tf.Must([]float64{0.6}, []float64{1, -0.4}, dt)
	piBasis = []tf.TransferFunction{
		tf.Must([]float64{1}, []float64{1, -1}, dt),
		tf.Must([]float64{1, 0}, []float64{1, -1}, dt),
	}
	// C = M/(P(1-M)) = 1.2(z-0.3)/(z-1) = -0.36/(z-1) + 1.2z/(z-1)
	trueTheta = []float64{-0.36, 1.2}
)

func prefilter() tf.TransferFunction {
	l, err := DefaultPrefilter(model)
	Expect(err).NotTo(HaveOccurred())
	return l
}

func openLoop(u []float64, seed int64, noise float64) *iddata.Data {
	res, err := sim.New(plant, nil).Run(context.Background(), u, sim.Config{Dt: dt, Seed: seed, NoiseStd: noise})
	Expect(err).NotTo(HaveOccurred())
	data, err := res.Data(2)
	Expect(err).NotTo(HaveOccurred())
	return data
}

var _ = Describe("Compute", func() {
	Context("with noise-free data and a controller inside the basis", func() {
		It("recovers the PI gains from open-loop data", func() {
			data := openLoop(sim.RandomBinary(600, 1, 1), 0, 0)

			res, err := Compute(data, model, piBasis, prefilter(), WithLogger(zap.NewNop()))
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Estimate.Method).To(Equal(MethodOLS))
			Expect(res.Theta).To(HaveLen(2))
			Expect(res.Theta[0]).To(BeNumerically("~", trueTheta[0], 1e-6))
			Expect(res.Theta[1]).To(BeNumerically("~", trueTheta[1], 1e-6))
			Expect(res.Estimate.Loss).To(BeNumerically("<", 1e-20))
			Expect(res.Instruments).To(BeNil())
			Expect(res.VirtualReference).To(HaveLen(599))
		})

		It("recovers the PI gains from closed-loop data", func() {
			ctrl, err := Synthesize(trueTheta, piBasis)
			Expect(err).NotTo(HaveOccurred())

			out, err := sim.New(plant, &ctrl).Run(context.Background(), sim.RandomBinary(600, 2, 1), sim.Config{Dt: dt})
			Expect(err).NotTo(HaveOccurred())
			data, err := out.Data(2)
			Expect(err).NotTo(HaveOccurred())

			res, err := Compute(data, model, piBasis, prefilter())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Theta[0]).To(BeNumerically("~", trueTheta[0], 1e-6))
			Expect(res.Theta[1]).To(BeNumerically("~", trueTheta[1], 1e-6))
		})

		It("synthesises a controller that makes the loop behave like the model", func() {
			data := openLoop(sim.Square(400, 50, 1), 0, 0)
			res, err := Compute(data, model, piBasis, prefilter())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Controller.Den()).To(Equal(tf.Poly{1, -1}))
			num := res.Controller.Num()
			Expect(num[0]).To(BeNumerically("~", 1.2, 1e-6))
			Expect(num[1]).To(BeNumerically("~", -0.36, 1e-6))

			open, err := res.Controller.Multiply(plant)
			Expect(err).NotTo(HaveOccurred())
			closed, err := open.Feedback()
			Expect(err).NotTo(HaveOccurred())
			got, err := closed.Step(60)
			Expect(err).NotTo(HaveOccurred())
			want, err := model.Step(60)
			Expect(err).NotTo(HaveOccurred())
			for k := range want {
				Expect(got[k]).To(BeNumerically("~", want[k], 1e-5))
			}
		})
	})

	Context("with noisy output measurements", func() {
		It("has a smaller error with instrumental variables than with least squares", func() {
			const trials = 20
			u := sim.RandomBinary(2000, 7, 1)

			runs, err := sim.NewEnsemble(sim.New(plant, nil), 2*trials, 100).
				Run(context.Background(), u, sim.Config{Dt: dt, NoiseStd: 0.2})
			Expect(err).NotTo(HaveOccurred())

			var mseOLS, mseIV float64
			for i := 0; i < trials; i++ {
				data, err := runs[2*i].Data(2)
				Expect(err).NotTo(HaveOccurred())
				inst, err := runs[2*i+1].Data(2)
				Expect(err).NotTo(HaveOccurred())

				ols, err := Compute(data, model, piBasis, prefilter())
				Expect(err).NotTo(HaveOccurred())
				iv, err := Compute(data, model, piBasis, prefilter(), WithInstrument(inst))
				Expect(err).NotTo(HaveOccurred())
				Expect(iv.Estimate.Method).To(Equal(MethodIV))
				Expect(iv.Instruments).NotTo(BeNil())

				for j := range trueTheta {
					mseOLS += sq(ols.Theta[j] - trueTheta[j])
					mseIV += sq(iv.Theta[j] - trueTheta[j])
				}
			}
			Expect(mseIV).To(BeNumerically("<", mseOLS))
		})
	})

	Context("with invalid inputs", func() {
		var data *iddata.Data

		BeforeEach(func() {
			data = openLoop(sim.RandomBinary(100, 3, 1), 0, 0)
		})

		It("rejects short initial conditions before building the regression", func() {
			short, err := iddata.New(data.Y(), data.U(), dt, []float64{0})
			Expect(err).NotTo(HaveOccurred())

			_, err = Compute(short, model, piBasis, prefilter())
			Expect(err).To(MatchError(ErrInsufficientHistory))
		})

		It("rejects a basis sampled at another rate", func() {
			basis := []tf.TransferFunction{piBasis[0], tf.Must([]float64{1, 0}, []float64{1, -1}, 0.02)}
			_, err := Compute(data, model, basis, prefilter())
			Expect(err).To(MatchError(tf.ErrSamplingMismatch))
		})

		It("reports a rank-deficient basis", func() {
			basis := []tf.TransferFunction{piBasis[0], piBasis[0]}
			_, err := Compute(data, model, basis, prefilter())
			Expect(err).To(MatchError(ErrRankDeficient))
		})

		It("reports useless instruments as ill-conditioned", func() {
			zero, err := iddata.New(make([]float64, 100), data.U(), dt, []float64{0, 0})
			Expect(err).NotTo(HaveOccurred())

			_, err = Compute(data, model, piBasis, prefilter(), WithInstrument(zero))
			Expect(err).To(MatchError(ErrIllConditioned))
		})

		It("rejects an instrument experiment of a different length", func() {
			other := openLoop(sim.RandomBinary(90, 3, 1), 0, 0)
			_, err := Compute(data, model, piBasis, prefilter(), WithInstrument(other))
			Expect(err).To(MatchError(ErrDimensionMismatch))
		})

		It("rejects a prefilter with less delay than the reference model", func() {
			_, err := Compute(data, model, piBasis, tf.Must([]float64{1}, []float64{1}, dt))
			Expect(err).To(MatchError(tf.ErrInvalidTransferFunction))
		})
	})
})

var _ = Describe("IV", func() {
	It("equals OLS when the instruments are the regressors", func() {
		data := openLoop(sim.RandomBinary(300, 4, 1), 9, 0.05)
		p, err := Build(data, model, piBasis, prefilter())
		Expect(err).NotTo(HaveOccurred())

		ols, err := OLS(p)
		Expect(err).NotTo(HaveOccurred())
		iv, err := IV(p, p.Phi, 0)
		Expect(err).NotTo(HaveOccurred())
		for j := range ols.Theta {
			Expect(iv.Theta[j]).To(BeNumerically("~", ols.Theta[j], 1e-9))
		}

		var cov mat.Dense
		cov.Sub(ols.Covariance, iv.Covariance)
		Expect(mat.Norm(&cov, 2)).To(BeNumerically("<", 1e-9))
	})
})

func sq(x float64) float64 { return x * x }
